package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	resty "github.com/go-resty/resty/v2"
)

// DefaultProbeTimeout bounds the whole request, connect to last byte.
const DefaultProbeTimeout = 30 * time.Second

type APIVersion struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Version string `json:"version"`
}

// InstanceProbe checks that a new org answers on its instance URL. The
// versions resource does not need a session, so no token is sent.
type InstanceProbe struct {
	Client *resty.Client
}

func NewInstanceProbe() *InstanceProbe {
	return &InstanceProbe{Client: resty.New().SetTimeout(DefaultProbeTimeout)}
}

// LatestAPIVersion returns the newest REST API version the instance serves.
func (p *InstanceProbe) LatestAPIVersion(ctx context.Context, instanceURL string) (APIVersion, error) {
	if instanceURL == "" {
		return APIVersion{}, fmt.Errorf("no instance url")
	}
	resp, err := p.Client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(strings.TrimRight(instanceURL, "/") + "/services/data")
	if err != nil {
		return APIVersion{}, err
	}
	if resp.StatusCode() != 200 {
		return APIVersion{}, fmt.Errorf("GET %s: %s", resp.Request.URL, resp.Status())
	}

	versions := []APIVersion{}
	if err := json.Unmarshal(resp.Body(), &versions); err != nil {
		return APIVersion{}, err
	}
	if len(versions) == 0 {
		return APIVersion{}, fmt.Errorf("instance reported no API versions")
	}

	latest := versions[0]
	for _, v := range versions[1:] {
		if versionNumber(v.Version) > versionNumber(latest.Version) {
			latest = v
		}
	}
	return latest, nil
}

func versionNumber(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
