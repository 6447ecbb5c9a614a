package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// resource serves the standard collection routes of one table.
type resource[T any, C any] struct {
	s    *Server
	name string
	rows *table[T]

	// build turns a validated create payload into a row without id. It may abort c.
	build  func(c *gin.Context, req C, now time.Time) (T, bool)
	assign func(row *T, id int64)
	// touch restores server-owned fields after a partial update.
	touch func(row *T, prev T, now time.Time)
}

func (r *resource[T, C]) register(read, write gin.IRoutes, path string) {
	read.GET(path, r.list)
	read.GET(path+"/:id", r.get)
	write.POST(path, r.create)
	write.PUT(path+"/:id", r.update)
	write.DELETE(path+"/:id", r.delete)
}

// registerAdmin mounts the admin mutation routes that catalog resources expose
// under <path>/admin next to their plain collection routes.
func (r *resource[T, C]) registerAdmin(write gin.IRoutes, path string) {
	write.POST(path+"/admin", r.create)
	write.PUT(path+"/admin/:id", r.update)
	write.DELETE(path+"/admin/:id", r.delete)
}

func (r *resource[T, C]) list(c *gin.Context) {
	c.JSON(http.StatusOK, r.rows.list(nil))
}

func (r *resource[T, C]) get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	row, err := r.rows.get(id)
	if err != nil {
		notFound(c, r.name, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (r *resource[T, C]) create(c *gin.Context) {
	var req C
	if !r.s.bind(c, &req) {
		return
	}
	row, ok := r.build(c, req, r.s.now().UTC())
	if !ok {
		return
	}
	row, err := r.rows.insert(c.Request.Context(), func(id int64) T {
		r.assign(&row, id)
		return row
	})
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

type badBodyError struct{ err error }

func (e *badBodyError) Error() string { return "invalid body: " + e.err.Error() }

// update merges the body into the stored row so partial payloads work.
func (r *resource[T, C]) update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r.updateID(c, id)
}

func (r *resource[T, C]) updateID(c *gin.Context, id int64) {
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		abort(c, http.StatusBadRequest, "invalid body")
		return
	}
	row, err := r.rows.update(c.Request.Context(), id, func(prev T) (T, error) {
		next, err := clone(prev)
		if err != nil {
			return prev, err
		}
		if err := json.Unmarshal(body, &next); err != nil {
			return prev, &badBodyError{err}
		}
		r.touch(&next, prev, r.s.now().UTC())
		if err := r.s.validate.Struct(next); err != nil {
			return prev, &badBodyError{err}
		}
		return next, nil
	})
	var bad *badBodyError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, row)
	case errors.As(err, &bad):
		abort(c, http.StatusBadRequest, "%v", bad)
	default:
		notFound(c, r.name, err)
	}
}

// clone deep-copies a row so a rejected merge cannot reach the stored
// pointers (prices, optional dates).
func clone[T any](row T) (T, error) {
	var out T
	data, err := json.Marshal(row)
	if err != nil {
		return out, fmt.Errorf("failed to copy row: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to copy row: %w", err)
	}
	return out, nil
}

func (r *resource[T, C]) delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := r.rows.delete(c.Request.Context(), id); err != nil {
		notFound(c, r.name, err)
		return
	}
	c.Status(http.StatusNoContent)
}
