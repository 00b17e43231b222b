package deployer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPublishProfile(t *testing.T) {
	creds := PublishCredentials{
		Username:     "deploy",
		Password:     `p&ss"word`,
		PublishURL:   "https://host:8172/msdeploy.axd",
		MSDeploySite: "Site",
	}
	require.True(t, creds.Complete())

	data, err := BuildPublishProfile("Site <A>", creds)
	require.NoError(t, err)

	doc := string(data)
	assert.True(t, strings.HasPrefix(doc, "<?xml"))
	assert.Contains(t, doc, `profileName="Site &lt;A&gt;"`)
	assert.Contains(t, doc, `userPWD="p&amp;ss&#34;word"`)

	creds.MSDeploySite = "  "
	assert.False(t, creds.Complete())
}
