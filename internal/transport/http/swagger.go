package http

import (
	"net/http"
	"os"

	"github.com/ghodss/yaml"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/quantiva/customers-api/internal/util"
)

// RegisterSwagger serves the YAML document at specPath as JSON under
// /swagger/doc.json and the UI under /swagger. The file is read per request
// so edits show up without a restart.
func RegisterSwagger(e *echo.Echo, specPath string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e.GET("/swagger/doc.json", func(c echo.Context) error {
		data, err := os.ReadFile(specPath)
		if err != nil {
			logger.Error("load swagger doc", zap.String("path", specPath), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, util.Error("unable to load API docs"))
		}
		doc, err := yaml.YAMLToJSON(data)
		if err != nil {
			logger.Error("convert swagger doc", zap.String("path", specPath), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, util.Error("unable to parse API docs"))
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, doc)
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
}
