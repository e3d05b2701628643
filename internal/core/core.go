// Package core links the built-in business modules into the binary. Each
// imported package registers its units with the plugin catalog from init().
package core

import (
	_ "github.com/R3E-Network/paneladmin/internal/core/system/api"
	_ "github.com/R3E-Network/paneladmin/internal/core/system/middleware"
	_ "github.com/R3E-Network/paneladmin/internal/core/users/api/v1"
)
