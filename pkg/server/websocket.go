package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Peripli/character-gallery/pkg/characterapi"
	"github.com/Peripli/character-gallery/pkg/httputils"
	"github.com/Peripli/character-gallery/pkg/paging"
	"github.com/Peripli/character-gallery/pkg/session"
	"github.com/Peripli/service-manager/pkg/log"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Websocket message types
const (
	MessageLoadMore = "load_more"
	MessagePage     = "page"
	MessageDone     = "done"
	MessageBusy     = "busy"
	MessageError    = "error"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// serveWebsocket serves the load more channel of a session. Messages are handled one at a time and
// closing the connection ends the session.
func (c *GalleryController) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := c.session(r)
	if err != nil {
		httputils.WriteResponse(w, http.StatusGone, httputils.HTTPErrorResponse{
			ErrorKey:     "SessionNotFound",
			ErrorMessage: expiredMessage,
		})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.C(ctx).WithError(err).Warn("Could not upgrade to websocket")
		return
	}
	done := make(chan struct{})
	defer func() {
		close(done)
		conn.Close()
		c.Sessions.Delete(s.ID)
		log.C(ctx).Debugf("Websocket of session %s closed", s.ID)
	}()

	if c.PingPeriod > 0 {
		if err := c.keepAlive(ctx, conn, done); err != nil {
			log.C(ctx).WithError(err).Warnf("Could not set up keepalive for session %s", s.ID)
			return
		}
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.C(ctx).WithError(err).Warnf("Websocket of session %s failed", s.ID)
			}
			return
		}

		reply := c.handleMessage(ctx, s, message)
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			log.C(ctx).WithError(err).Debugf("Could not write to websocket of session %s", s.ID)
			return
		}
		// pongs are only processed while reading, a slow load must not eat up the read deadline
		if c.PingPeriod > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(c.pongWait())); err != nil {
				return
			}
		}
	}
}

// keepAlive pings the peer every PingPeriod. A peer that does not answer within two periods
// fails the pending read.
func (c *GalleryController) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) error {
	if err := conn.SetReadDeadline(time.Now().Add(c.pongWait())); err != nil {
		return errors.Wrap(err, "error setting websocket read deadline")
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	})

	go func() {
		ticker := time.NewTicker(c.PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					log.C(ctx).WithError(err).Debug("Websocket ping failed")
					return
				}
			}
		}
	}()
	return nil
}

func (c *GalleryController) pongWait() time.Duration {
	return 2 * c.PingPeriod
}

func (c *GalleryController) handleMessage(ctx context.Context, s *session.Session, message []byte) []byte {
	if !gjson.ValidBytes(message) {
		return errorMessage("malformed message")
	}
	if kind := gjson.GetBytes(message, "type").String(); kind != MessageLoadMore {
		return errorMessage(fmt.Sprintf("unknown message type %q", kind))
	}
	// every command counts as activity, a gallery driven over the socket is not idle
	if err := c.Sessions.Touch(s.ID); err != nil {
		return errorMessage(expiredMessage)
	}
	defer c.Sessions.Touch(s.ID)

	loadCtx, cancel := c.loadContext(ctx)
	defer cancel()
	appended, err := s.Paginator.LoadMore(loadCtx)
	switch {
	case errors.Is(err, paging.ErrNoMorePages):
		return typedMessage(MessageDone)
	case errors.Is(err, paging.ErrLoadInProgress):
		return typedMessage(MessageBusy)
	case err != nil:
		log.C(ctx).WithError(err).Warnf("Loading more characters for session %s failed", s.ID)
		return errorMessage(failureMessage(err))
	}

	snapshot := s.Paginator.Snapshot()
	reply, err := pageMessage(appended, snapshot.Next, snapshot.HasNext())
	if err != nil {
		log.C(ctx).WithError(err).Error("Could not build page message")
		return errorMessage("could not encode characters")
	}
	return reply
}

func typedMessage(kind string) []byte {
	message, _ := sjson.SetBytes([]byte(`{}`), "type", kind)
	return message
}

func errorMessage(text string) []byte {
	message, err := sjson.SetBytes(typedMessage(MessageError), "message", text)
	if err != nil {
		return typedMessage(MessageError)
	}
	return message
}

func pageMessage(characters []characterapi.Character, next paging.Cursor, hasMore bool) ([]byte, error) {
	if characters == nil {
		characters = []characterapi.Character{}
	}
	data, err := json.Marshal(characters)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding characters")
	}

	message := typedMessage(MessagePage)
	if message, err = sjson.SetRawBytes(message, "characters", data); err != nil {
		return nil, err
	}
	nextValue := []byte("null")
	if next.HasNext() {
		if nextValue, err = json.Marshal(next.String()); err != nil {
			return nil, err
		}
	}
	if message, err = sjson.SetRawBytes(message, "next", nextValue); err != nil {
		return nil, err
	}
	return sjson.SetBytes(message, "has_more", hasMore)
}
