package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type chatApi struct {
	svc    *chat.Service
	crsSvc course.ServiceInterface
	usrSvc user.ServiceInterface
}

func registerChatAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	crsSvc course.ServiceInterface,
	usrSvc user.ServiceInterface,
	svc *chat.Service,
) {
	api := chatApi{
		svc:    svc,
		crsSvc: crsSvc,
		usrSvc: usrSvc,
	}

	mg := g.Group("/courses/:id/messages", jwt, courseAccessMiddleware(crsSvc, usrSvc))
	mg.GET("", api.history)
	mg.GET("/private", api.privateHistory)
}

func (api *chatApi) bindFilter(ctx echo.Context) chat.MessageFilter {
	var filter chat.MessageFilter
	if limit, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(ctx.QueryParam("offset")); err == nil {
		filter.Offset = offset
	}
	return filter
}

// history returns a course's public messages, oldest first.
func (api *chatApi) history(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	msgs, err := api.svc.History(ctx.Request().Context(), crs.ID, api.bindFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

// privateHistory returns the caller's private messages within the course.
func (api *chatApi) privateHistory(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := api.bindFilter(ctx)
	filter.Private = true
	filter.UserID = ctxUsr.ID

	msgs, err := api.svc.History(ctx.Request().Context(), crs.ID, filter)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}
