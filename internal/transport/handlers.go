package transport

import (
	"github.com/ds124wfegd/coloringbook/internal/service"
)

type ConversionHandler struct {
	service        service.ConversionService
	maxUploadBytes int64
}

func NewConversionHandler(service service.ConversionService, maxUploadBytes int64) *ConversionHandler {
	return &ConversionHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}
