package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playlog/internal/api/dto"
	"github.com/osa030/playlog/internal/app/convert"
	"github.com/osa030/playlog/internal/domain/logsheet"
	"github.com/osa030/playlog/internal/infra/catalog"
)

const csvBody = "title,duration,performer,album,year,label,composer,notes\r\n"

type fakeConverter struct {
	result *convert.Result
	err    error
	got    []convert.Request
}

func (f *fakeConverter) Convert(_ context.Context, req convert.Request) (*convert.Result, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestClient(t *testing.T, c Converter) *ConverterClient {
	t.Helper()
	mux := http.NewServeMux()
	path, handler := NewConverterServiceHandler(NewConverterService(c), connect.WithInterceptors(NewLoggingInterceptor()))
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewConverterClient(srv.Client(), srv.URL+"/")
}

func TestConverterService_ConvertNew(t *testing.T) {
	fc := &fakeConverter{result: &convert.Result{
		PlaylistName: "Tuesday late show",
		Body:         csvBody,
		Warnings:     []string{},
	}}
	client := newTestClient(t, fc)

	resp, err := client.ConvertNew(context.Background(), &dto.ConvertRequest{
		PlaylistURL: "spotify:playlist:abc",
		Format:      "old",
	})
	require.NoError(t, err)

	assert.Equal(t, "Tuesday late show", resp.PlaylistName)
	assert.Equal(t, csvBody, resp.Body)
	assert.Empty(t, resp.Warnings)

	require.Len(t, fc.got, 1)
	// The procedure decides the format, not the message.
	assert.Equal(t, logsheet.NewEditor, fc.got[0].Format)
	assert.Equal(t, "spotify:playlist:abc", fc.got[0].PlaylistURL)
}

func TestConverterService_ConvertOld(t *testing.T) {
	fc := &fakeConverter{result: &convert.Result{
		Body:     csvBody,
		Warnings: []string{"Track 1: composer unknown"},
	}}
	client := newTestClient(t, fc)

	resp, err := client.ConvertOld(context.Background(), &dto.ConvertRequest{
		PlaylistURL: "spotify:playlist:abc",
		ShowTitle:   "Night Moves",
		ShowDate:    "2025-03-07",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Track 1: composer unknown"}, resp.Warnings)
	require.Len(t, fc.got, 1)
	assert.Equal(t, convert.Request{
		PlaylistURL: "spotify:playlist:abc",
		Format:      logsheet.OldEditor,
		ShowTitle:   "Night Moves",
		ShowDate:    "2025-03-07",
	}, fc.got[0])
}

func TestConverterService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    connect.Code
		message string
	}{
		{
			name:    "validation",
			err:     &convert.ValidationError{Field: "playlist_url", Message: "must be a Spotify playlist URL"},
			code:    connect.CodeInvalidArgument,
			message: "must be a Spotify playlist URL",
		},
		{
			name:    "not found",
			err:     catalog.NewError(catalog.KindNotFound, errors.New("404")),
			code:    connect.CodeNotFound,
			message: "playlist not found or private",
		},
		{
			name:    "rate limit",
			err:     catalog.NewError(catalog.KindRateLimit, errors.New("429")),
			code:    connect.CodeResourceExhausted,
			message: "the music catalog is busy, try again later",
		},
		{
			name:    "transient",
			err:     catalog.NewError(catalog.KindTransient, errors.New("timeout")),
			code:    connect.CodeUnavailable,
			message: "the music catalog is busy, try again later",
		},
		{
			name:    "auth",
			err:     catalog.NewError(catalog.KindAuth, errors.New("invalid_client")),
			code:    connect.CodeUnauthenticated,
			message: "service authentication failed",
		},
		{
			name:    "internal",
			err:     errors.New("disk on fire"),
			code:    connect.CodeInternal,
			message: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeConverter{err: tt.err})

			resp, err := client.ConvertNew(context.Background(), &dto.ConvertRequest{PlaylistURL: "x"})
			require.Error(t, err)
			assert.Nil(t, resp)

			var cerr *connect.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.code, cerr.Code())
			assert.Equal(t, tt.message, cerr.Message())
			assert.NotEmpty(t, cerr.Meta().Get(RequestIDHeader))
		})
	}
}

func TestConverterClient_MalformedResponse(t *testing.T) {
	tests := []struct {
		name   string
		result *convert.Result
	}{
		{name: "missing body", result: &convert.Result{Warnings: []string{}}},
		{name: "missing warnings", result: &convert.Result{Body: csvBody}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeConverter{result: tt.result})

			resp, err := client.ConvertNew(context.Background(), &dto.ConvertRequest{PlaylistURL: "x"})
			assert.Nil(t, resp)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
		})
	}
}

func TestJSONCodec(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&dto.ConvertResponse{Warnings: []string{}, Body: csvBody})
	require.NoError(t, err)
	assert.JSONEq(t, `{"playlistName":"","warnings":[],"body":"title,duration,performer,album,year,label,composer,notes\r\n"}`, string(data))

	var msg dto.ConvertResponse
	assert.Error(t, codec.Unmarshal([]byte("{"), &msg))
}
