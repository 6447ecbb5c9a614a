package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warranty-tracker/warranty-client/internal/auth"
)

type widget struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (w widget) EntityID() int64 { return w.ID }

type createWidget struct {
	Name string `json:"name" validate:"required"`
}

// widgetServer is a tiny in-memory /widget collection.
type widgetServer struct {
	mu      sync.Mutex
	items   map[int64]widget
	nextID  int64
	lastReq *http.Request
	hits    int64
}

func newWidgetServer(t *testing.T) (*widgetServer, *httptest.Server) {
	ws := &widgetServer{items: map[int64]widget{}}
	srv := httptest.NewServer(http.HandlerFunc(ws.serve))
	t.Cleanup(srv.Close)
	return ws, srv
}

func (ws *widgetServer) serve(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	atomic.AddInt64(&ws.hits, 1)
	ws.lastReq = r.Clone(context.Background())

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if parts[0] != "widget" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			list := []widget{}
			for _, it := range ws.items {
				list = append(list, it)
			}
			_ = json.NewEncoder(w).Encode(list)
		case http.MethodPost:
			var in createWidget
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			ws.nextID++
			it := widget{ID: ws.nextID, Name: in.Name}
			ws.items[it.ID] = it
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(it)
		}
		return
	}

	id, _ := strconv.ParseInt(parts[1], 10, 64)
	it, ok := ws.items[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"widget not found"}`))
		return
	}
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(it)
	case http.MethodPut:
		var in widget
		_ = json.NewDecoder(r.Body).Decode(&in)
		in.ID = id
		ws.items[id] = in
		_ = json.NewEncoder(w).Encode(in)
	case http.MethodDelete:
		delete(ws.items, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (ws *widgetServer) last() *http.Request {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.lastReq
}

func newWidgetResource(t *testing.T, baseURL string, holder *auth.Holder) *Resource[widget, int64] {
	opts := Options{BaseURL: baseURL, Validator: validator.New()}
	if holder != nil {
		opts.Credentials = holder
	}
	tr, err := NewTransport(opts)
	require.NoError(t, err)
	return NewResource[widget, int64](tr, "widget")
}

func TestResource_CRUD(t *testing.T) {
	_, srv := newWidgetServer(t)
	res := newWidgetResource(t, srv.URL, auth.NewHolder())
	ctx := context.Background()

	t.Run("empty list is success", func(t *testing.T) {
		items, err := res.List(ctx, false)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Len(t, items, 0)
	})

	created, err := res.Create(ctx, createWidget{Name: "gear"}, false)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	t.Run("list and get agree", func(t *testing.T) {
		items, err := res.List(ctx, false)
		require.NoError(t, err)
		require.Len(t, items, 1)

		got, err := res.Get(ctx, items[0].ID, false)
		require.NoError(t, err)
		assert.Equal(t, items[0], got)
	})

	t.Run("update", func(t *testing.T) {
		created.Name = "sprocket"
		updated, err := res.Update(ctx, created, false)
		require.NoError(t, err)
		assert.Equal(t, "sprocket", updated.Name)
	})

	t.Run("delete then delete again surfaces 404", func(t *testing.T) {
		require.NoError(t, res.Delete(ctx, created.ID, false))

		err := res.Delete(ctx, created.ID, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestResource_NotFoundIsHTTPStatusError(t *testing.T) {
	_, srv := newWidgetServer(t)
	res := newWidgetResource(t, srv.URL, nil)

	got, err := res.Get(context.Background(), 404, false)
	require.Error(t, err)
	assert.Zero(t, got)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, "widget not found", statusErr.Message)
	assert.True(t, errors.Is(err, ErrNotFound))

	code, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, 404, code)
}

func TestResource_AuthHeader(t *testing.T) {
	ws, srv := newWidgetServer(t)
	holder := auth.NewHolder()
	res := newWidgetResource(t, srv.URL, holder)
	ctx := context.Background()

	t.Run("attached when required and present", func(t *testing.T) {
		holder.Set("X")
		_, err := res.List(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, "Bearer X", ws.last().Header.Get("Authorization"))
	})

	t.Run("never attached when not required", func(t *testing.T) {
		holder.Set("X")
		_, err := res.List(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, ws.last().Header.Get("Authorization"))
	})

	t.Run("absent token proceeds without header", func(t *testing.T) {
		holder.Clear()
		_, err := res.List(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, ws.last().Header.Get("Authorization"))
	})

	t.Run("token is read at call time", func(t *testing.T) {
		holder.Set("first")
		_, _ = res.List(ctx, true)
		holder.Set("second")
		_, _ = res.List(ctx, true)
		assert.Equal(t, "Bearer second", ws.last().Header.Get("Authorization"))
	})
}

func TestResource_ValidationErrorsSendNothing(t *testing.T) {
	ws, srv := newWidgetServer(t)
	res := newWidgetResource(t, srv.URL, nil)
	ctx := context.Background()

	_, err := res.Get(ctx, 0, false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)

	_, err = res.Create(ctx, createWidget{}, false)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Name", verr.Field)

	_, err = res.Create(ctx, nil, false)
	require.ErrorAs(t, err, &verr)

	err = res.Delete(ctx, 0, false)
	require.ErrorAs(t, err, &verr)

	_, err = res.Update(ctx, widget{Name: "no id"}, false)
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, int64(0), atomic.LoadInt64(&ws.hits))
}

func TestResource_SchemaErrors(t *testing.T) {
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	defer srv.Close()
	res := newWidgetResource(t, srv.URL, nil)

	t.Run("malformed body", func(t *testing.T) {
		body.Store(`not json`)
		_, err := res.List(context.Background(), false)
		var serr *SchemaError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("missing required field", func(t *testing.T) {
		body.Store(`[{"id": 1}]`)
		_, err := res.List(context.Background(), false)
		var serr *SchemaError
		require.ErrorAs(t, err, &serr)
		assert.Contains(t, serr.Error(), "item 0")
	})

	t.Run("null single record", func(t *testing.T) {
		body.Store(`null`)
		_, err := res.Get(context.Background(), 1, false)
		var serr *SchemaError
		require.ErrorAs(t, err, &serr)
	})
}

func TestResource_ErrorMessageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>boom</html>"))
	}))
	defer srv.Close()
	res := newWidgetResource(t, srv.URL, nil)

	_, err := res.List(context.Background(), false)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "API error: 500", statusErr.Message)
}

func TestResource_NetworkErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		res := newWidgetResource(t, url, nil)
		_, err := res.List(context.Background(), false)
		var nerr *NetworkError
		require.ErrorAs(t, err, &nerr)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		tr, err := NewTransport(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
		require.NoError(t, err)
		res := NewResource[widget, int64](tr, "widget")

		_, err = res.List(context.Background(), false)
		var nerr *NetworkError
		require.ErrorAs(t, err, &nerr)
		assert.True(t, nerr.Timeout())
	})
}

func TestResource_FindEncodesSegmentsAndParams(t *testing.T) {
	var mu sync.Mutex
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	res := newWidgetResource(t, srv.URL, nil)

	_, err := res.Find(context.Background(), []string{"status", "a b"}, Params{}.Set("days", "7").Set("empty", ""), false)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/widget/status/a%20b", gotPath)
	assert.Equal(t, "days=7", gotQuery)
}

func TestTransport_RequestIDAndMetrics(t *testing.T) {
	var rid atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid.Store(r.Header.Get("X-Request-Id"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	res := newWidgetResource(t, srv.URL, nil)

	ctx := WithRequestID(context.Background(), "req-42")
	_, err := res.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "req-42", rid.Load())

	_, err = res.List(context.Background(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, rid.Load())
	assert.NotEqual(t, "req-42", rid.Load())

	snap := res.Transport().Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.Calls)
	assert.Equal(t, int64(0), snap.Errors)
	assert.Equal(t, float64(0), snap.ErrorRate())
}

func TestTransport_ClearOnUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	t.Run("kept by default", func(t *testing.T) {
		holder := auth.NewHolder()
		holder.Set("stale")
		res := newWidgetResource(t, srv.URL, holder)

		_, err := res.List(context.Background(), true)
		assert.True(t, errors.Is(err, ErrUnauthorized))
		_, ok := holder.Token()
		assert.True(t, ok)
	})

	t.Run("cleared when enabled", func(t *testing.T) {
		holder := auth.NewHolder()
		holder.Set("stale")
		tr, err := NewTransport(Options{BaseURL: srv.URL, Credentials: holder, ClearOnUnauthorized: true})
		require.NoError(t, err)

		_, err = NewResource[widget, int64](tr, "widget").List(context.Background(), true)
		var statusErr *HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "invalid token", statusErr.Message)
		_, ok := holder.Token()
		assert.False(t, ok)
	})
}

func TestNewTransport_RejectsRelativeURL(t *testing.T) {
	_, err := NewTransport(Options{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestResource_EmptyPath(t *testing.T) {
	tr, err := NewTransport(Options{BaseURL: "http://localhost"})
	require.NoError(t, err)
	res := NewResource[widget, int64](tr, "/")

	_, err = res.List(context.Background(), false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
