package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	svcerrors "github.com/R3E-Network/paneladmin/internal/errors"
)

func TestWriteErrorServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, svcerrors.NotFound("user", "9"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := rec.Body.Bytes()
	assert.Equal(t, "NOT_FOUND", gjson.GetBytes(body, "error.code").String())
	assert.Equal(t, "9", gjson.GetBytes(body, "error.details.id").String())
}

func TestWriteErrorHidesPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("password=hunter2"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Equal(t, "INTERNAL_ERROR", gjson.Get(rec.Body.String(), "error.code").String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"alice"}`, false},
		{"unknown-field", `{"name":"alice","extra":1}`, true},
		{"empty", ``, true},
		{"trailing", `{"name":"a"}{"name":"b"}`, true},
		{"too-large", `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr {
				require.Error(t, err)
				se, ok := svcerrors.As(err)
				require.True(t, ok)
				assert.Equal(t, http.StatusBadRequest, se.HTTPStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", dst.Name)
		})
	}
}
