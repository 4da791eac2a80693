package birdchat

import (
	_ "github.com/cydxin/birdchat/docs"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterSwagger 在 Gin 路由上注册 Swagger UI，path 默认 /swagger/*any
//
//	r := gin.Default()
//	birdchat.RegisterSwagger(r, "")
//
// 访问：http://localhost:6789/swagger/index.html
func RegisterSwagger(r gin.IRoutes, path string) {
	if path == "" {
		path = "/swagger/*any"
	}
	r.GET(path, ginSwagger.WrapHandler(swaggerFiles.Handler))
}
