package auth

import (
	"github.com/gdbrns/go-whatsapp-multibot/pkg/env"
)

// AdminSecretKey guards operator endpoints such as the provisioning session listing
var AdminSecretKey string

func init() {
	AdminSecretKey = env.GetEnvStringOrDefault("HTTP_ADMIN_SECRET", env.GetEnvStringOrDefault("ADMIN_SECRET_KEY", ""))
}
