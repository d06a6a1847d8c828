package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/helixbio/gva-annotation-orchestrator/http/controller"
	middlewares "github.com/helixbio/gva-annotation-orchestrator/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)

	r.GET("/health", ctrl.Health)

	apiRoutes := r.Group("/api/v1")
	{
		apiRoutes.Use(middles.AuthMiddleware)

		annotationRoutes := apiRoutes.Group("/annotations")
		{
			annotationRoutes.POST("/uploads", ctrl.CreateUpload)
			annotationRoutes.POST("/", ctrl.CreateAnnotation)
			annotationRoutes.GET("/", ctrl.ListAnnotations)
			annotationRoutes.GET("/:id", ctrl.GetAnnotation)
			annotationRoutes.GET("/:id/log", ctrl.GetAnnotationLog)
		}

		subscriptionRoutes := apiRoutes.Group("/subscription")
		{
			subscriptionRoutes.POST("/upgrade", ctrl.UpgradeSubscription)
		}
	}

	return r
}
