package httptransport

import "github.com/gin-gonic/gin"

// APIResponse is the envelope used by the operational endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// ErrorResponse is the body of a failed dashboard API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondSuccess writes an enveloped success response.
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	resp := APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondError writes an enveloped failure response.
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// AbortWithError stops the chain with {"error": message}.
func AbortWithError(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Error: message})
}
