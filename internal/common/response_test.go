package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marketplace-cart/internal/common"
)

func TestWriteErrorAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	err := common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, errors.New("missing")).
		WithDetails(map[string]string{"id": "x"})
	common.WriteError(rr, err)

	require.Equal(t, http.StatusNotFound, rr.Code)
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.Equal(t, "cart not found", body.Error.Message)
	require.NotNil(t, body.Error.Details)
}

func TestWriteErrorHidesInternal(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, errors.New("redis: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "redis")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Code string `json:"code"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"SAVE10"}`))
	require.NoError(t, common.DecodeJSON(req, &dst, false))
	require.Equal(t, "SAVE10", dst.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	err := common.DecodeJSON(req, &dst, false)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, common.DecodeJSON(req, &dst, true))
	require.Error(t, common.DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &dst, false))
}
