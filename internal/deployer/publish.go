package deployer

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

const (
	publishMethodMSDeploy = "MSDeploy"
	webSystemWebSites     = "WebSites"
)

type publishData struct {
	XMLName xml.Name       `xml:"publishData"`
	Profile publishProfile `xml:"publishProfile"`
}

type publishProfile struct {
	ProfileName   string `xml:"profileName,attr"`
	PublishMethod string `xml:"publishMethod,attr"`
	PublishURL    string `xml:"publishUrl,attr"`
	UserName      string `xml:"userName,attr"`
	UserPWD       string `xml:"userPWD,attr"`
	WebSystem     string `xml:"webSystem,attr"`
	MSDeploySite  string `xml:"msdeploySite,attr"`
}

// PublishCredentials are the secret values needed to synthesize a publish profile
type PublishCredentials struct {
	Username     string
	Password     string
	PublishURL   string
	MSDeploySite string
}

// Complete reports whether every credential is present
func (c PublishCredentials) Complete() bool {
	return strings.TrimSpace(c.Username) != "" &&
		strings.TrimSpace(c.Password) != "" &&
		strings.TrimSpace(c.PublishURL) != "" &&
		strings.TrimSpace(c.MSDeploySite) != ""
}

// BuildPublishProfile renders a publish settings document for the given profile name.
// msdeploySite is always "WebSites"; the secret only gates synthesis.
func BuildPublishProfile(profileName string, creds PublishCredentials) ([]byte, error) {
	doc := publishData{
		Profile: publishProfile{
			ProfileName:   profileName,
			PublishMethod: publishMethodMSDeploy,
			PublishURL:    creds.PublishURL,
			UserName:      creds.Username,
			UserPWD:       creds.Password,
			WebSystem:     webSystemWebSites,
			MSDeploySite:  webSystemWebSites,
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal publish profile: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// resolvePublishSettings returns the publish settings file to hand to the deployer.
// An empty path means the deployment continues without publish settings.
func (e *Executor) resolvePublishSettings(ctx context.Context, job *models.DeploymentJob, target *models.DeploymentTarget, logger zerolog.Logger) (string, error) {
	if strings.TrimSpace(target.PublishSettingsXML) != "" {
		path, err := writeTempFile(e.config.tempRoot(), job.ID.String()+"-*.publishsettings", []byte(target.PublishSettingsXML), job.TempResources)
		if err != nil {
			return "", fmt.Errorf("failed to write inline publish settings: %w", err)
		}
		logger.Debug().Str("path", path).Msg("Using inline publish settings")
		return path, nil
	}

	if target.PublishSettingsFile != "" {
		if _, err := os.Stat(target.PublishSettingsFile); err == nil {
			logger.Debug().Str("path", target.PublishSettingsFile).Msg("Using publish settings file")
			return target.PublishSettingsFile, nil
		}
		logger.Warn().
			Str("path", target.PublishSettingsFile).
			Msg("Publish settings file does not exist, falling back to secrets")
	}

	creds := e.lookupCredentials(ctx, target.ID, logger)
	if !creds.Complete() {
		logger.Warn().Msg("No publish settings available, deploying without publish settings")
		return "", nil
	}

	data, err := BuildPublishProfile(target.Name, creds)
	if err != nil {
		return "", err
	}
	path, err := writeTempFile(e.config.tempRoot(), job.ID.String()+"-*.publishsettings", data, job.TempResources)
	if err != nil {
		return "", fmt.Errorf("failed to write synthesized publish settings: %w", err)
	}
	logger.Debug().Str("path", path).Msg("Synthesized publish settings from secrets")
	return path, nil
}

func (e *Executor) lookupCredentials(ctx context.Context, targetID string, logger zerolog.Logger) PublishCredentials {
	if e.secrets == nil {
		return PublishCredentials{}
	}

	get := func(key string) string {
		value, ok, err := e.secrets.GetSecret(ctx, targetID, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to read secret")
			return ""
		}
		if !ok {
			return ""
		}
		return value
	}

	return PublishCredentials{
		Username:     get(SecretKeyUsername),
		Password:     get(SecretKeyPassword),
		PublishURL:   get(SecretKeyPublishURL),
		MSDeploySite: get(SecretKeyMSDeploySite),
	}
}
