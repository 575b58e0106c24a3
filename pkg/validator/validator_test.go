package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assetBody struct {
	URL    string `json:"url" validate:"required"`
	Width  int    `json:"width" validate:"gte=0"`
	Height int    `json:"height" validate:"gte=0,lte=10000"`
}

type recordBody struct {
	ProductID string     `json:"productId" validate:"required"`
	Hover     *assetBody `json:"hoverImage" validate:"omitempty"`
	Kind      string     `json:"kind" validate:"omitempty,oneof=video image"`
	Alt       string     `json:"altText" validate:"max=5"`
	Internal  string     `json:"-" validate:"max=1"`
}

func TestValidate_Success(t *testing.T) {
	s := recordBody{ProductID: "p-1", Hover: &assetBody{URL: "h.png", Width: 10}}
	assert.NoError(t, Validate(s))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	err := Validate(recordBody{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["productId"])
	assert.Contains(t, err.Error(), "productId is required")
}

func TestValidate_NestedFieldPath(t *testing.T) {
	s := recordBody{ProductID: "p-1", Hover: &assetBody{URL: "h.png", Width: -1}}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "hoverImage.width")
	assert.Contains(t, valErr.Fields()["hoverImage.width"], "greater than or equal to 0")
}

func TestValidate_OutOfRange(t *testing.T) {
	s := recordBody{ProductID: "p-1", Hover: &assetBody{URL: "h.png", Height: 20000}}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["hoverImage.height"], "10000")
}

func TestValidate_OneOfAndMax(t *testing.T) {
	s := recordBody{ProductID: "p-1", Kind: "audio", Alt: "too long alt"}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["kind"], "one of")
	assert.Contains(t, fields["altText"], "at most 5")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"productId":"p-1","hoverImage":{"url":"h.png","width":4,"height":3}}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s recordBody
	require.NoError(t, DecodeAndValidate(req, &s))
	assert.Equal(t, "p-1", s.ProductID)
	require.NotNil(t, s.Hover)
	assert.Equal(t, 4, s.Hover.Width)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s recordBody
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":""}`))

	var s recordBody
	err := DecodeAndValidate(req, &s)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
