package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
)

var errNotFound = errors.New("Not found.")

func dbcOf(c *gin.Context) dbctx.Context { return dbctx.Context{Ctx: c.Request.Context()} }

// pathID parses the :id segment. A malformed id is reported as 404, the same as a missing row.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusNotFound, "not_found", errNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func pageOf(c *gin.Context, p pagination.Params) (pagination.Page, bool) {
	pg, err := p.FromRequest(c.Request)
	if err != nil {
		response.RespondAPIError(c, err, "invalid_page")
		return pg, false
	}
	return pg, true
}

func respondPage[T any](c *gin.Context, pg pagination.Page, count int64, results []T) {
	response.RespondOK(c, pagination.NewEnvelope(pagination.RequestURL(c.Request), pg, count, results))
}

// flexString accepts a JSON string or number and keeps its literal text.
type flexString struct {
	Value string
	Set   bool
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	f.Set = true
	s := strings.TrimSpace(string(b))
	if s == "null" {
		f.Value = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		return json.Unmarshal(b, &f.Value)
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	f.Value = n.String()
	return nil
}

// optionalUUID parses a possibly empty id field. ok is false when raw is set but malformed.
func optionalUUID(raw *string) (*uuid.UUID, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, false
	}
	return &id, true
}

func firstNonNil(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
