package endpoints

import "facturador/internal/api"

// All returns every endpoint the server exposes.
func All() []api.Endpoint {
	return []api.Endpoint{
		&IndexEndpoint{},
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&InvoicesEndpoint{},
	}
}
