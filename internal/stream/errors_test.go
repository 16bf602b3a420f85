package stream

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapping_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("boom")
	err := NetworkError("dial failed", cause)

	assert.Equal(t, KindNetwork, err.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestHTTPError_CarriesStatus(t *testing.T) {
	err := HTTPError(503, "segment returned error status")
	assert.Equal(t, KindHTTP, err.Kind)
	assert.Equal(t, 503, err.Status)
}

func TestFromJSON_ClassifiesAsParse(t *testing.T) {
	var v struct{ N int }
	jsonErr := json.Unmarshal([]byte(`{"N": "not a number"}`), &v)
	if jsonErr == nil {
		t.Fatal("expected a json unmarshal error to set up this test")
	}

	err := FromJSON(jsonErr)
	assert.Equal(t, KindParse, err.Kind)
}

func TestOffline_HasNoUnderlyingCause(t *testing.T) {
	err := Offline("streamer is not live")
	assert.Equal(t, KindOffline, err.Kind)
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "streamer is not live", err.Error())
}
