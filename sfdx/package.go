package sfdx

const (
	InstallInProgress = "IN_PROGRESS"
	InstallSuccess    = "SUCCESS"
	InstallError      = "ERROR"
)

type InstalledPackage struct {
	ID                             string `json:"Id"`
	SubscriberPackageID            string `json:"SubscriberPackageId"`
	SubscriberPackageName          string `json:"SubscriberPackageName"`
	SubscriberPackageNamespace     string `json:"SubscriberPackageNamespace"`
	SubscriberPackageVersionID     string `json:"SubscriberPackageVersionId"`
	SubscriberPackageVersionName   string `json:"SubscriberPackageVersionName"`
	SubscriberPackageVersionNumber string `json:"SubscriberPackageVersionNumber"`
}

// InstallRequest is the PackageInstallRequest record returned by both
// `package install` and `package install report`.
type InstallRequest struct {
	ID                          string         `json:"Id"`
	Status                      string         `json:"Status"`
	SubscriberPackageVersionKey string         `json:"SubscriberPackageVersionKey"`
	Errors                      *InstallErrors `json:"Errors,omitempty"`
}

type InstallErrors struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (r InstallRequest) ErrorMessages() []string {
	if r.Errors == nil {
		return nil
	}
	var out []string
	for _, e := range r.Errors.Errors {
		out = append(out, e.Message)
	}
	return out
}
