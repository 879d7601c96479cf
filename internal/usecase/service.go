package usecase

import (
	"pippin/internal/config"
	"pippin/internal/ports"
	"pippin/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Vision       adapters.VisionService
	Interaction  adapters.InteractionService
	Verification adapters.VerificationService
	System       adapters.SystemService
}

type Params struct {
	fx.In

	Logger   *zap.Logger
	Config   *config.Config
	Session  *Session
	Actuator ports.Actuator
	Apps     ports.AppController
	Devices  ports.DeviceResolver
	State    ports.StateStore
	Crashes  ports.CrashReporter
	Probe    ports.BackendProbe
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Vision:       factory.CreateVisionService(),
		Interaction:  factory.CreateInteractionService(),
		Verification: factory.CreateVerificationService(),
		System:       factory.CreateSystemService(),
	}
}
