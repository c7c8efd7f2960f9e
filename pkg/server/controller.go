package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Peripli/character-gallery/pkg/characterapi"
	"github.com/Peripli/character-gallery/pkg/httputils"
	"github.com/Peripli/character-gallery/pkg/paging"
	"github.com/Peripli/character-gallery/pkg/session"
	"github.com/Peripli/character-gallery/pkg/web"
	"github.com/Peripli/service-manager/pkg/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const (
	// SessionCookie names the cookie holding the id of the gallery session
	SessionCookie = "gallery_session"

	sessionQueryParam = "session"
	expiredMessage    = "This gallery has expired. Reload the page to start over."
)

// GalleryController serves the character gallery
type GalleryController struct {
	Client   characterapi.Client
	Sessions *session.Store

	Title          string
	RequestTimeout time.Duration
	PingPeriod     time.Duration
}

var _ Controller = &GalleryController{}

// Routes registers the gallery endpoints
func (c *GalleryController) Routes(router *mux.Router) {
	router.HandleFunc("/", c.index).Methods(http.MethodGet)
	router.HandleFunc(web.LoadMorePath, c.loadMore).Methods(http.MethodPost)
	router.HandleFunc("/characters", c.characters).Methods(http.MethodGet)
	router.HandleFunc("/characters/export", c.export).Methods(http.MethodGet)
	router.HandleFunc("/ws", c.serveWebsocket).Methods(http.MethodGet)
	router.HandleFunc("/healthz", health).Methods(http.MethodGet)
}

func (c *GalleryController) index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		c.Sessions.Delete(cookie.Value)
	}

	origin := c.Client.FirstPage()
	loadCtx, cancel := c.loadContext(ctx)
	defer cancel()
	first, err := c.Client.Load(loadCtx, origin)
	if err != nil {
		log.C(ctx).WithError(err).Error("Could not load the first page of characters")
		web.Render(w, r, http.StatusBadGateway, web.ErrorPage(c.Title, failureMessage(err)))
		return
	}

	s, err := c.Sessions.Create(c.Client, origin, first)
	if err != nil {
		log.C(ctx).WithError(err).Error("Could not create gallery session")
		status := http.StatusInternalServerError
		if err == session.ErrLimitReached {
			status = http.StatusServiceUnavailable
		}
		web.Render(w, r, status, web.ErrorPage(c.Title, "The gallery is not available right now. Please try again later."))
		return
	}
	log.C(ctx).Debugf("Started gallery session %s with %d characters", s.ID, len(first.Items))

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	web.Render(w, r, http.StatusOK, web.Gallery(c.view(s.Paginator.Snapshot())))
}

func (c *GalleryController) loadMore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := c.session(r)
	if err != nil {
		if web.IsHTMXRequest(r) {
			w.Header().Set("HX-Redirect", "/")
		}
		web.Render(w, r, http.StatusGone, web.ErrorPage(c.Title, expiredMessage))
		return
	}

	loadCtx, cancel := c.loadContext(ctx)
	defer cancel()
	appended, err := s.Paginator.LoadMore(loadCtx)

	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, paging.ErrNoMorePages), errors.Is(err, paging.ErrLoadInProgress):
		log.C(ctx).Debugf("Ignoring load more for session %s: %s", s.ID, err)
	default:
		log.C(ctx).WithError(err).Warnf("Loading more characters for session %s failed", s.ID)
		// htmx does not swap error responses, the banner has to arrive with a 200
		if !web.IsHTMXRequest(r) {
			status = http.StatusBadGateway
		}
	}

	view := c.view(s.Paginator.Snapshot())
	web.RenderPage(w, r, status, web.Appended(view, appended), web.Gallery(view))
}

type charactersResponse struct {
	Next    string                   `json:"next"`
	HasMore bool                     `json:"has_more"`
	Count   int                      `json:"count"`
	Total   int                      `json:"total"`
	Results []characterapi.Character `json:"results"`
}

func (c *GalleryController) characters(w http.ResponseWriter, r *http.Request) {
	s, err := c.session(r)
	if err != nil {
		httputils.WriteResponse(w, http.StatusGone, httputils.HTTPErrorResponse{
			ErrorKey:     "SessionNotFound",
			ErrorMessage: expiredMessage,
		})
		return
	}

	snapshot := s.Paginator.Snapshot()
	httputils.WriteResponse(w, http.StatusOK, charactersResponse{
		Next:    snapshot.Next.String(),
		HasMore: snapshot.HasNext(),
		Count:   len(snapshot.Items),
		Total:   snapshot.Total,
		Results: snapshot.Items,
	})
}

// export streams the whole catalogue as one JSON array. Once the first page is written
// the status is committed and later failures can only cut the stream short.
func (c *GalleryController) export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processor := paging.PageProcessor[characterapi.Character]{
		Pager: paging.NewCursorPager[characterapi.Character](c.Client, c.Client.FirstPage()),
	}

	started := false
	count := 0
	err := processor.Process(ctx, func(characters []characterapi.Character) error {
		if !started {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("[")); err != nil {
				return err
			}
			started = true
		}
		for _, character := range characters {
			data, err := json.Marshal(character)
			if err != nil {
				return errors.Wrapf(err, "error encoding character %d", character.ID)
			}
			if count > 0 {
				data = append([]byte(","), data...)
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
			count++
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		log.C(ctx).WithError(err).Errorf("Export stopped after %d characters", count)
		if !started {
			httputils.WriteResponse(w, http.StatusBadGateway, httputils.HTTPErrorResponse{
				ErrorKey:     "FetchError",
				ErrorMessage: err.Error(),
			})
		}
		return
	}

	if !started {
		httputils.WriteJSON(w, http.StatusOK, []byte("[]"))
		return
	}
	if _, err := w.Write([]byte("]")); err != nil {
		log.C(ctx).WithError(err).Debug("Could not finish export")
		return
	}
	log.C(ctx).Infof("Exported %d characters", count)
}

func health(w http.ResponseWriter, r *http.Request) {
	httputils.WriteResponse(w, http.StatusOK, map[string]string{"status": "UP"})
}

func (c *GalleryController) session(r *http.Request) (*session.Session, error) {
	id := r.URL.Query().Get(sessionQueryParam)
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}
	if id == "" {
		return nil, session.ErrNotFound
	}
	return c.Sessions.Get(id)
}

func (c *GalleryController) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.RequestTimeout)
}

func (c *GalleryController) view(snapshot paging.Snapshot[characterapi.Character]) web.GalleryView {
	view := web.GalleryView{
		Title:      c.Title,
		Characters: snapshot.Items,
		HasMore:    snapshot.HasNext(),
		Page:       characterapi.PageNumber(snapshot.Current.String()),
		Pages:      snapshot.Pages,
		Total:      snapshot.Total,
	}
	if snapshot.Err != nil {
		view.Error = failureMessage(snapshot.Err)
	}
	return view
}

func failureMessage(err error) string {
	if characterapi.IsFetchError(err) {
		return "Could not load characters. Please try again."
	}
	return "Something went wrong while loading characters. Please try again."
}
