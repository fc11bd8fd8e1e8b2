package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newTestClient(t *testing.T, cfg Config, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL is required")
}

func TestDo_SuccessDecodesJSON(t *testing.T) {
	c := newTestClient(t, Config{Token: "secret"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/jobs/abc", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(headerRequestID))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc","status":"running"}`))
	})

	res, err := c.Do(context.Background(), Request{Method: http.MethodGet, Route: "/v1/jobs/abc"})
	require.NoError(t, err)

	var got struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, res.Decode(&got))
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "running", got.Status)
}

func TestDo_ClassifiesStatusCodes(t *testing.T) {
	testCases := []struct {
		code int
		want Kind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusNotFound, KindNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindServerError},
		{http.StatusBadGateway, KindServerError},
		{http.StatusBadRequest, KindOther},
		{http.StatusConflict, KindOther},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				w.Write([]byte(`{"message":"nope"}`))
			})

			_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Route: "/x"})
			require.Error(t, err)

			var tErr *Error
			require.True(t, errors.As(err, &tErr))
			assert.Equal(t, tc.want, tErr.Kind)
			assert.Equal(t, tc.code, tErr.StatusCode)
			assert.Equal(t, "nope", tErr.Message)
			assert.Equal(t, tc.code == http.StatusTooManyRequests, IsRateLimited(err))
		})
	}
}

func TestDo_ErrorMessageFallsBackToRawBody(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down\n"))
	})

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Route: "/x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestDo_ConnectionFailureIsOther(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Route: "/x"})
	require.Error(t, err)
	assert.Equal(t, KindOther, KindOf(err))
}

func TestDo_GzipCompressesBody(t *testing.T) {
	c := newTestClient(t, Config{Gzip: true}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		zr, err := gzip.NewReader(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		body, err := io.ReadAll(zr)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"kind":"layer"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1"}`))
	})

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Route:  "/v1/jobs",
		Body:   map[string]string{"kind": "layer"},
	})
	require.NoError(t, err)
}

func TestDo_MsgpackRoundTrip(t *testing.T) {
	c := newTestClient(t, Config{Encoding: EncodingMsgpack}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, contentTypeMsgpack, r.Header.Get("Content-Type"))
		var in map[string]any
		assert.NoError(t, msgpack.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "layer", in["kind"])

		out, err := msgpack.Marshal(map[string]any{"id": "m-1", "result": map[string]any{"E": 1.5}})
		if !assert.NoError(t, err) {
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.Write(out)
	})

	res, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Route:  "/v1/jobs",
		Body:   json.RawMessage(`{"kind":"layer"}`),
	})
	require.NoError(t, err)

	var got struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, res.Decode(&got))
	assert.Equal(t, "m-1", got.ID)
	assert.JSONEq(t, `{"E":1.5}`, string(got.Result))
}

func TestMarshal_MsgpackUsesJSONFieldNames(t *testing.T) {
	type payload struct {
		Kind   string          `json:"kind"`
		Count  int             `json:"count"`
		Params json.RawMessage `json:"params,omitempty"`
	}

	b, err := EncodingMsgpack.marshal(payload{Kind: "layer", Count: 3, Params: json.RawMessage(`{"t":1}`)})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, msgpack.Unmarshal(b, &got))
	assert.Equal(t, "layer", got["kind"])
	assert.EqualValues(t, 3, got["count"])
	assert.NotContains(t, got, "Kind")
	params, ok := got["params"].(map[string]any)
	require.True(t, ok, "params must be a map, got %T", got["params"])
	assert.EqualValues(t, 1, params["t"])
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, enc)

	enc, err = ParseEncoding("MsgPack")
	require.NoError(t, err)
	assert.Equal(t, EncodingMsgpack, enc)

	_, err = ParseEncoding("xml")
	assert.ErrorContains(t, err, "unknown encoding")
}
