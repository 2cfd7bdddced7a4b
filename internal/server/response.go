package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

const (
	codeOK   = 0
	codeFail = -1
)

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: codeOK, Msg: "success", Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Code: codeFail, Msg: msg})
}
