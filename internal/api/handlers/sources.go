package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"multascan/internal/sources"
	"multascan/pkg/models"
)

// SourcesHandler lists the registered source adapters
func SourcesHandler(dispatcher *sources.Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		descriptors := dispatcher.Sources()

		infos := make([]models.SourceInfo, 0, len(descriptors))
		for _, d := range descriptors {
			infos = append(infos, models.SourceInfo{
				ID:           d.ID,
				Jurisdiction: d.Jurisdiction,
				Default:      d.Default,
			})
		}

		return c.JSON(http.StatusOK, models.SourcesResponse{
			Sources: infos,
			Count:   len(infos),
		})
	}
}
