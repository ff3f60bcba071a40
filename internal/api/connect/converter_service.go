package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/playlog/internal/api/dto"
	"github.com/osa030/playlog/internal/app/convert"
	"github.com/osa030/playlog/internal/domain/logsheet"
)

const (
	// ConverterServiceName is the fully-qualified name of the service.
	ConverterServiceName = "playlog.v1.ConverterService"
	// ConvertNewProcedure converts a playlist for the new playlist editor.
	ConvertNewProcedure = "/" + ConverterServiceName + "/ConvertNew"
	// ConvertOldProcedure converts a playlist for the old playlist editor.
	ConvertOldProcedure = "/" + ConverterServiceName + "/ConvertOld"
)

// Converter performs conversions.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) (*convert.Result, error)
}

// ConverterService implements the ConverterService RPC.
type ConverterService struct {
	converter Converter
}

// NewConverterService creates a new ConverterService.
func NewConverterService(converter Converter) *ConverterService {
	return &ConverterService{converter: converter}
}

// ConvertNew handles conversions for the new playlist editor.
func (s *ConverterService) ConvertNew(
	ctx context.Context,
	req *connect.Request[dto.ConvertRequest],
) (*connect.Response[dto.ConvertResponse], error) {
	return s.convert(ctx, logsheet.NewEditor, req.Msg)
}

// ConvertOld handles conversions for the old playlist editor.
func (s *ConverterService) ConvertOld(
	ctx context.Context,
	req *connect.Request[dto.ConvertRequest],
) (*connect.Response[dto.ConvertResponse], error) {
	return s.convert(ctx, logsheet.OldEditor, req.Msg)
}

func (s *ConverterService) convert(
	ctx context.Context,
	format logsheet.Format,
	msg *dto.ConvertRequest,
) (*connect.Response[dto.ConvertResponse], error) {
	res, err := s.converter.Convert(ctx, convert.Request{
		PlaylistURL: msg.PlaylistURL,
		Format:      format,
		ShowTitle:   msg.ShowTitle,
		ShowDate:    msg.ShowDate,
	})
	if err != nil {
		class := convert.Classify(err)
		event := zerolog.Ctx(ctx).Warn()
		if class == convert.ClassInternal {
			event = zerolog.Ctx(ctx).Error()
		}
		event.Err(err).Str("class", class.String()).Msg("conversion failed")
		return nil, connect.NewError(codeFor(class), errors.New(convert.UserMessage(err)))
	}

	return connect.NewResponse(&dto.ConvertResponse{
		PlaylistName: res.PlaylistName,
		Warnings:     res.Warnings,
		Body:         res.Body,
	}), nil
}

func codeFor(c convert.Class) connect.Code {
	switch c {
	case convert.ClassValidation:
		return connect.CodeInvalidArgument
	case convert.ClassNotFound:
		return connect.CodeNotFound
	case convert.ClassRateLimit:
		return connect.CodeResourceExhausted
	case convert.ClassTransient:
		return connect.CodeUnavailable
	case convert.ClassAuth:
		return connect.CodeUnauthenticated
	default:
		return connect.CodeInternal
	}
}

// NewConverterServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewConverterServiceHandler(svc *ConverterService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ConvertNewProcedure, connect.NewUnaryHandler(ConvertNewProcedure, svc.ConvertNew, opts...))
	mux.Handle(ConvertOldProcedure, connect.NewUnaryHandler(ConvertOldProcedure, svc.ConvertOld, opts...))
	return "/" + ConverterServiceName + "/", mux
}
