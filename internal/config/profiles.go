package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/kode4food/signwiz/pkg/api"
)

// profilesFile is the layout of SIGNWIZ_PROFILES_FILE
type profilesFile struct {
	Profiles map[string]*api.Endpoints `mapstructure:"profiles"`
}

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrProfilesFile       = errors.New("unable to read profiles file")
)

var builtinProfiles = map[string]*api.Endpoints{
	EnvDevelopment: {
		BaseURL:                   "https://msblocks.seliselocal.com",
		TokenAPI:                  "api/identity/v20/identity/token",
		GetUploadURLAPI:           "api/storageservice/v22/StorageService/StorageQuery/GetPreSignedUrlForUpload",
		PollUploadStatusAPI:       "api/storageservice/v22/StorageService/StorageQuery/PollUploadStatus",
		PrepareContractAPI:        "api/selisign/v42/SeliSign//ExternalApp/PrepareContract",
		PrepareAndSendContractAPI: "api/selisign/v42/SeliSign//ExternalApp/PrepareAndSendContract",
		SendContractAPI:           "api/selisign/v42/SeliSign//ExternalApp/RolloutContract",
		GetEventsAPI:              "api/selisign/v42/SeliSign//ExternalApp/GetEvents",
	},
	EnvStaging: {
		BaseURL:                   "https://app.selisestage.com",
		TokenAPI:                  "api/identity/v25/identity/token",
		GetUploadURLAPI:           "api/storageservice/v23/StorageService/StorageQuery/GetPreSignedUrlForUpload",
		PollUploadStatusAPI:       "api/storageservice/v23/StorageService/StorageQuery/PollUploadStatus",
		PrepareContractAPI:        "api/selisign/v65/SeliSign/ExternalApp/PrepareContract",
		PrepareAndSendContractAPI: "api/selisign/v65/SeliSign/ExternalApp/PrepareAndSendContract",
		SendContractAPI:           "api/selisign/v65/SeliSign/ExternalApp/RolloutContract",
		GetEventsAPI:              "api/selisign/v65/SeliSign/ExternalApp/GetEvents",
	},
	EnvProduction: {
		BaseURL:                   "https://selise.app",
		TokenAPI:                  "api/identity/v100/identity/token",
		GetUploadURLAPI:           "api/storageservice/v100/StorageService/StorageQuery/GetPreSignedUrl",
		PollUploadStatusAPI:       "api/storageservice/v23/StorageService/StorageQuery/PollUploadStatus",
		PrepareContractAPI:        "api/selisign/s1/SeliSign/ExternalApp/PrepareContract",
		PrepareAndSendContractAPI: "api/selisign/s1/SeliSign/ExternalApp/PrepareAndSendContract",
		SendContractAPI:           "api/selisign/s1/SeliSign/ExternalApp/RolloutContract",
		GetEventsAPI:              "api/selisign/s1/SeliSign/ExternalApp/GetEvents",
	},
}

// Profiles returns a copy of the built-in endpoint tables, keyed by
// environment name
func Profiles() map[string]*api.Endpoints {
	res := make(map[string]*api.Endpoints, len(builtinProfiles))
	for name, ep := range builtinProfiles {
		res[name] = ep.Merge(nil)
	}
	return res
}

// LoadProfiles reads additional or overriding profiles from a YAML, TOML or
// JSON file. Profile names are case-insensitive
func LoadProfiles(path string) (map[string]*api.Endpoints, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfilesFile, err)
	}

	var file profilesFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfilesFile, err)
	}

	res := make(map[string]*api.Endpoints, len(file.Profiles))
	for name, ep := range file.Profiles {
		if ep != nil {
			res[strings.ToLower(name)] = ep
		}
	}
	return res, nil
}

// ResolveEndpoints selects the endpoint profile for the configured
// environment, applying the profiles file and base URL override
func (c *Config) ResolveEndpoints() (*api.Endpoints, error) {
	profiles := Profiles()
	if c.ProfilesFile != "" {
		extra, err := LoadProfiles(c.ProfilesFile)
		if err != nil {
			return nil, err
		}
		for name, ep := range extra {
			if base, ok := profiles[name]; ok {
				profiles[name] = base.Merge(ep)
				continue
			}
			profiles[name] = ep
		}
	}

	base, ok := profiles[strings.ToLower(c.Environment)]
	if !ok {
		names := strings.Join(slices.Sorted(maps.Keys(profiles)), ", ")
		return nil, fmt.Errorf("%w: %s (known: %s)",
			ErrUnknownEnvironment, c.Environment, names)
	}

	ep := base.Merge(&api.Endpoints{BaseURL: c.BaseURL})
	if !c.UploadPolling {
		ep.PollUploadStatusAPI = ""
	}
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	return ep, nil
}
