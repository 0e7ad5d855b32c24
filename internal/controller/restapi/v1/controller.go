package v1

import (
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/go-playground/validator/v10"
)

type V1 struct {
	relay    usecase.RelayUseCase
	origins  usecase.OriginUseCase
	logger   logger.Interface
	validate *validator.Validate
}
