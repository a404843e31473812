package interfaces

import (
	"github.com/google/wire"

	"github.com/beepcard/beep-tap/internal/interfaces/httpserver"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/handlers"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/routes"
)

// InterfacesProvider provides all interface dependencies.
var InterfacesProvider = wire.NewSet(
	handlers.HandlerProvider,
	routes.RouteProvider,
	httpserver.New,
)
