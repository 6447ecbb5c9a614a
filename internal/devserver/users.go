package devserver

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warranty-tracker/warranty-client/internal/auth"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

// currentUser finds the registered user behind the verified token.
func (s *Server) currentUser(c *gin.Context) (domain.User, bool) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		return domain.User{}, false
	}
	users := s.users.list(func(u domain.User) bool { return u.FirebaseUID == uid })
	if len(users) == 0 {
		return domain.User{}, false
	}
	return users[0], true
}

// registerUsers mounts /user. Admin routes are not role checked here.
func (s *Server) registerUsers(rg gin.IRoutes) {
	r := &resource[domain.User, domain.CreateUserRequest]{
		s:    s,
		name: "user",
		rows: s.users,
		build: func(c *gin.Context, req domain.CreateUserRequest, now time.Time) (domain.User, bool) {
			uid := req.FirebaseUID
			if uid == "" {
				uid = auth.UserFirebaseUID(c)
			}
			email := req.Email
			if email == "" {
				email = c.GetString(auth.CtxEmail)
			}
			ts := domain.Timestamp{Time: now}
			return domain.User{
				FirebaseUID: uid,
				Email:       email,
				DisplayName: req.DisplayName,
				CreatedAt:   ts,
				UpdatedAt:   ts,
			}, true
		},
		assign: func(row *domain.User, id int64) { row.ID = id },
		touch: func(row *domain.User, prev domain.User, now time.Time) {
			row.ID, row.FirebaseUID = prev.ID, prev.FirebaseUID
			row.CreatedAt, row.UpdatedAt = prev.CreatedAt, domain.Timestamp{Time: now}
		},
	}

	rg.GET("/user", func(c *gin.Context) {
		u, ok := s.currentUser(c)
		if !ok {
			abort(c, http.StatusNotFound, "user not found")
			return
		}
		c.JSON(http.StatusOK, u)
	})
	rg.POST("/user", func(c *gin.Context) {
		if _, ok := s.currentUser(c); ok {
			abort(c, http.StatusConflict, "user already registered")
			return
		}
		// the body is optional, the token carries the identity
		body, err := c.GetRawData()
		if err != nil {
			abort(c, http.StatusBadRequest, "invalid body")
			return
		}
		if len(bytes.TrimSpace(body)) == 0 {
			body = []byte("{}")
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		r.create(c)
	})
	rg.PUT("/user", func(c *gin.Context) {
		u, ok := s.currentUser(c)
		if !ok {
			abort(c, http.StatusNotFound, "user not found")
			return
		}
		r.updateID(c, u.ID)
	})
	rg.GET("/user/:id", r.get)

	rg.GET("/user/admin/all", r.list)
	rg.GET("/user/admin/:id", r.get)
	rg.PUT("/user/admin/:id", r.update)
	rg.DELETE("/user/admin/:id", r.delete)
}
