package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/playlog/internal/api/dto"
)

// ErrMalformedResponse is returned when a successful response lacks the CSV
// body or the warnings list.
var ErrMalformedResponse = errors.New("malformed response")

// ConverterClient is a client for the ConverterService.
type ConverterClient struct {
	convertNew *connect.Client[dto.ConvertRequest, dto.ConvertResponse]
	convertOld *connect.Client[dto.ConvertRequest, dto.ConvertResponse]
}

// NewConverterClient constructs a client for the ConverterService at baseURL.
func NewConverterClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ConverterClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &ConverterClient{
		convertNew: connect.NewClient[dto.ConvertRequest, dto.ConvertResponse](httpClient, baseURL+ConvertNewProcedure, opts...),
		convertOld: connect.NewClient[dto.ConvertRequest, dto.ConvertResponse](httpClient, baseURL+ConvertOldProcedure, opts...),
	}
}

// ConvertNew calls ConverterService.ConvertNew.
func (c *ConverterClient) ConvertNew(ctx context.Context, req *dto.ConvertRequest) (*dto.ConvertResponse, error) {
	return call(ctx, c.convertNew, req)
}

// ConvertOld calls ConverterService.ConvertOld.
func (c *ConverterClient) ConvertOld(ctx context.Context, req *dto.ConvertRequest) (*dto.ConvertResponse, error) {
	return call(ctx, c.convertOld, req)
}

func call(
	ctx context.Context,
	client *connect.Client[dto.ConvertRequest, dto.ConvertResponse],
	req *dto.ConvertRequest,
) (*dto.ConvertResponse, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	msg := resp.Msg
	if msg == nil || msg.Body == "" || msg.Warnings == nil {
		return nil, ErrMalformedResponse
	}
	return msg, nil
}
