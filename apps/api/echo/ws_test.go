package echoapi

import (
	"io/ioutil"
	"log"
	"sync"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	logsvc "github.com/trezcool/darasa/services/logger"
)

func newTestGateway() *wsGateway {
	conf := &core.Config{}
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return newWSGateway(conf, logger, chat.NewRegistry(), nil, nil, nil, nil)
}

// A member disconnecting while another member's broadcast fans out contends
// on the same send channel; the gateway must drop the frame, never panic.
func Test_wsGateway_sendDuringDisconnect(t *testing.T) {
	g := newTestGateway()
	evt := chat.ServerEvent{Event: chat.EvtPublicMessage, Data: chat.ChatMessage{Content: "salut"}}

	for i := 0; i < 500; i++ {
		client := &wsClient{id: "conn-1", send: make(chan []byte, 1)}
		g.clients[client.id] = client

		start := make(chan struct{})
		var wg sync.WaitGroup
		for s := 0; s < 4; s++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 10; j++ {
					g.Send(client.id, evt)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			g.remove(client)
		}()

		close(start)
		wg.Wait()

		if _, ok := g.clients[client.id]; ok {
			t.Fatal("client still registered after remove")
		}
	}
}

func Test_wsGateway_closeAllDuringSend(t *testing.T) {
	g := newTestGateway()
	evt := chat.ServerEvent{Event: chat.EvtRoster, Data: chat.RosterEvent{}}

	ids := []string{"conn-1", "conn-2", "conn-3"}
	for _, id := range ids {
		g.clients[id] = &wsClient{id: id, send: make(chan []byte, 1)}
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				g.Send(id, evt)
			}
		}()
	}
	close(start)
	g.closeAll()
	wg.Wait()

	if n := len(g.clients); n != 0 {
		t.Errorf("clients left after closeAll: %d", n)
	}

	// sends for a gone connection are dropped silently
	g.Send("conn-1", evt)
}
