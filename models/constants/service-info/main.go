package serviceInfo

import "fmt"

type ServiceInfo string

var (
	SERVICE_NAME        ServiceInfo = "Helix Annotation Service"
	SERVICE_WELCOME     ServiceInfo = "Welcome to the Helix clinical variant annotation API!"
	SERVICE_DESCRIPTION ServiceInfo = "Variant upload, validation and annotation service for a Helix review workspace."
	SERVICE_CONTACT     ServiceInfo = "mailto:support@helena.bio"

	SERVICE_ARTIFACT    ServiceInfo = "helix"
	SERVICE_VERSION     ServiceInfo = "0.0.1"
	SERVICE_TYPE_NO_VER ServiceInfo = ServiceInfo(fmt.Sprintf("bio.helena:%s", SERVICE_ARTIFACT))
	SERVICE_ID          ServiceInfo = SERVICE_TYPE_NO_VER
	SERVICE_TYPE        ServiceInfo = ServiceInfo(fmt.Sprintf("%s:%s", SERVICE_TYPE_NO_VER, SERVICE_VERSION))
)
