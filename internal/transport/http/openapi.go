package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"

	"tensosense-server-go/internal/utils"
)

const scalarHTML = `<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8" />
		<title>Tensosense API Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`

// RegisterDocs serves the registered swag document at /openapi.json and a
// Scalar viewer at /docs.
func RegisterDocs(engine *gin.Engine, logger *utils.Logger) {
	engine.GET("/openapi.json", func(c *gin.Context) {
		doc, err := swag.ReadDoc()
		if err != nil {
			logger.ErrorTag("HTTP", "generate openapi document failed: %v", err)
			RespondError(c, http.StatusInternalServerError, "failed to generate openapi document", gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	})

	engine.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(scalarHTML))
	})
}
