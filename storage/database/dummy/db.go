package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user    *userTable
		course  *courseTable
		message *messageTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	messageTable struct {
		sync.RWMutex
		table map[string]*chat.Message
		order []string // insertion order, the table map is unordered
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		course:  &courseTable{table: make(map[string]*course.Course)},
		message: &messageTable{table: make(map[string]*chat.Message)},
	}
	return db, nil
}
