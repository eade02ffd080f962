package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"connectrpc.com/connect"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/pipeline"
	"nexus/internal/types"
)

// Error metadata lets the client rebuild the typed error the service raised.
const (
	metaKind   = "Nexus-Error-Kind"
	metaFields = "Nexus-Error-Fields"
	metaStatus = "Nexus-Error-Status"
	metaCode   = "Nexus-Error-Code"
)

const (
	kindConfiguration = "configuration"
	kindPrecondition  = "precondition"
	kindService       = "service"
	kindParse         = "parse"
	kindNetwork       = "network"
)

func withKind(code connect.Code, kind string, err error) *connect.Error {
	ce := connect.NewError(code, err)
	ce.Meta().Set(metaKind, kind)
	return ce
}

// toConnectError maps the service error taxonomy onto connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var (
		cfg  *types.ConfigurationError
		pre  *pipeline.PreconditionError
		svc  *llmclient.ServiceError
		prs  *llmclient.ParseError
		netw *llmclient.NetworkError
	)
	switch {
	case errors.As(err, &cfg):
		ce := withKind(connect.CodeInvalidArgument, kindConfiguration, err)
		if b, mErr := json.Marshal(cfg.Fields); mErr == nil {
			ce.Meta().Set(metaFields, string(b))
		}
		return ce
	case errors.As(err, &pre):
		return withKind(connect.CodeFailedPrecondition, kindPrecondition, err)
	case errors.As(err, &svc):
		code := connect.CodeUnavailable
		switch {
		case svc.Status == http.StatusTooManyRequests:
			code = connect.CodeResourceExhausted
		case svc.Status > 0 && svc.Status < 500:
			code = connect.CodeInternal
		}
		ce := withKind(code, kindService, errors.New(svc.Message))
		ce.Meta().Set(metaStatus, strconv.Itoa(svc.Status))
		if svc.Code != "" {
			ce.Meta().Set(metaCode, svc.Code)
		}
		return ce
	case errors.As(err, &prs):
		return withKind(connect.CodeInternal, kindParse, prs.Err)
	case errors.As(err, &netw):
		return withKind(connect.CodeUnavailable, kindNetwork, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// fromConnectError is the client-side inverse of toConnectError. Failures
// without a connect status never reached the gateway and become
// NetworkErrors.
func fromConnectError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if !errors.As(err, &ce) {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &llmclient.NetworkError{Op: op, Err: err}
	}
	meta := ce.Meta()
	switch meta.Get(metaKind) {
	case kindConfiguration:
		var fields []types.FieldError
		if raw := meta.Get(metaFields); raw != "" {
			_ = json.Unmarshal([]byte(raw), &fields)
		}
		if len(fields) == 0 {
			fields = []types.FieldError{{Field: "request", Msg: ce.Message()}}
		}
		return &types.ConfigurationError{Fields: fields}
	case kindService:
		status, _ := strconv.Atoi(meta.Get(metaStatus))
		return &llmclient.ServiceError{Status: status, Code: meta.Get(metaCode), Message: ce.Message()}
	case kindParse:
		return &llmclient.ParseError{Err: errors.New(ce.Message())}
	case kindNetwork:
		// The gateway answered; its upstream did not.
		return llmclient.StatusFromHTTP(http.StatusBadGateway, ce.Message())
	}
	switch ce.Code() {
	case connect.CodeCanceled:
		return context.Canceled
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeUnknown:
		return &llmclient.NetworkError{Op: op, Err: err}
	}
	return llmclient.StatusFromHTTP(httpStatus(ce.Code()), ce.Message())
}

func httpStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeOutOfRange:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeResourceExhausted:
		return http.StatusTooManyRequests
	case connect.CodeUnimplemented:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
