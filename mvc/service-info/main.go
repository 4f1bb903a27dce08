package serviceInfo

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/helena-bio/helix-frontend-sub000/contexts"
	serviceInfo "github.com/helena-bio/helix-frontend-sub000/models/constants/service-info"
)

// Spec: https://github.com/ga4gh-discovery/ga4gh-service-info
func GetServiceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"type": map[string]interface{}{
			"artifact": serviceInfo.SERVICE_ARTIFACT,
			"group":    serviceInfo.SERVICE_TYPE_NO_VER,
			"version":  c.(*contexts.HelixContext).Config.SemVer,
		},
		"id":          serviceInfo.SERVICE_ID,
		"name":        serviceInfo.SERVICE_NAME,
		"description": serviceInfo.SERVICE_DESCRIPTION,
		"organization": map[string]string{
			"name": "Helena Bioscience",
			"url":  "https://helena.bio",
		},
		"contactUrl": c.(*contexts.HelixContext).Config.ServiceContact,
		"version":    c.(*contexts.HelixContext).Config.SemVer,
	})
}
