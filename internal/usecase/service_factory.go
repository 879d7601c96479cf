package usecase

import (
	"pippin/internal/usecase/adapters"
)

type serviceFactory struct {
	deps     Params
	locator  *Locator
	scroller *Scroller
}

func newServiceFactory(deps Params) *serviceFactory {
	locator := NewLocator(deps.Logger)

	return &serviceFactory{
		deps:     deps,
		locator:  locator,
		scroller: NewScroller(deps.Session, locator, deps.Actuator, deps.Logger),
	}
}

func (f *serviceFactory) CreateVisionService() adapters.VisionService {
	return NewVisionService(VisionServiceParams{
		Config:  f.deps.Config,
		Logger:  f.deps.Logger,
		Session: f.deps.Session,
		Apps:    f.deps.Apps,
		Devices: f.deps.Devices,
		State:   f.deps.State,
	})
}

func (f *serviceFactory) CreateInteractionService() adapters.InteractionService {
	return NewInteractionService(InteractionServiceParams{
		Config:   f.deps.Config,
		Logger:   f.deps.Logger,
		Session:  f.deps.Session,
		Actuator: f.deps.Actuator,
		Locator:  f.locator,
		Scroller: f.scroller,
	})
}

func (f *serviceFactory) CreateVerificationService() adapters.VerificationService {
	return NewVerificationService(VerificationServiceParams{
		Config:   f.deps.Config,
		Logger:   f.deps.Logger,
		Session:  f.deps.Session,
		Locator:  f.locator,
		Scroller: f.scroller,
	})
}

func (f *serviceFactory) CreateSystemService() adapters.SystemService {
	return NewSystemService(SystemServiceParams{
		Config:  f.deps.Config,
		Logger:  f.deps.Logger,
		Session: f.deps.Session,
		Apps:    f.deps.Apps,
		Devices: f.deps.Devices,
		State:   f.deps.State,
		Crashes: f.deps.Crashes,
		Probe:   f.deps.Probe,
	})
}
