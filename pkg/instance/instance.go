package instance

import "github.com/angelmondragon/servicecart/pkg/env"

// ID identifies this process in logs: an explicit SERVICECART_INSTANCE_ID, the Heroku dyno
// name, or the container hostname, falling back to "local".
func ID() string {
	return env.First("local", "SERVICECART_INSTANCE_ID", "DYNO", "HOSTNAME")
}
