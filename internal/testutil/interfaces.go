package testutil

import (
	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

//go:generate mockery --name=Caller --output=./mocks --outpkg=mocks
//go:generate mockery --name=HTTPDoer --output=./mocks --outpkg=mocks

// Caller wraps resource.Caller for mock generation
type Caller interface {
	resource.Caller
}

// HTTPDoer wraps transport.HTTPDoer for mock generation
type HTTPDoer interface {
	transport.HTTPDoer
}
