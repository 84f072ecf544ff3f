package intent

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ParserSuite struct {
	suite.Suite
}

func TestParserSuite(t *testing.T) {
	suite.Run(t, new(ParserSuite))
}

func (s *ParserSuite) TestParse() {
	cases := []struct {
		name         string
		text         string
		resourceType string
		resourceName string
		duration     int
	}{
		{
			name:         "database request with default duration",
			text:         "I need database credentials for production-postgres",
			resourceType: "database",
			resourceName: "production-postgres",
			duration:     5,
		},
		{
			name:         "api request with explicit duration",
			text:         "Get API credentials for stripe-api for 10 minutes",
			resourceType: "api",
			resourceName: "stripe-api",
			duration:     10,
		},
		{
			name:         "ssh key request",
			text:         "ssh key for bastion please",
			resourceType: "ssh",
			resourceName: "bastion",
			duration:     5,
		},
		{
			name:         "duration capped at fifteen",
			text:         "database credentials for prod-db for 100 minutes",
			resourceType: "database",
			resourceName: "prod-db",
			duration:     15,
		},
		{
			name:         "zero duration raised to one",
			text:         "api token for stripe-api for 0 minutes",
			resourceType: "api",
			resourceName: "stripe-api",
			duration:     1,
		},
		{
			name:         "short duration unit",
			text:         "db creds for reporting-db for 3 min",
			resourceType: "database",
			resourceName: "reporting-db",
			duration:     3,
		},
		{
			name:         "generic with salvaged name",
			text:         "secret for deploy-key",
			resourceType: "generic",
			resourceName: "deploy-key",
			duration:     5,
		},
		{
			name:         "unparseable text",
			text:         "Hello, how are you?",
			resourceType: "generic",
			resourceName: "",
			duration:     5,
		},
		{
			name:         "database outranks generic phrasing",
			text:         "credentials for database analytics",
			resourceType: "database",
			resourceName: "analytics",
			duration:     5,
		},
		{
			name:         "case insensitive matching",
			text:         "I NEED DATABASE CREDENTIALS FOR PRODUCTION-POSTGRES",
			resourceType: "database",
			resourceName: "production-postgres",
			duration:     5,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			parsed := Parse(tc.text)
			s.Equal(tc.resourceType, parsed.ResourceType)
			s.Equal(tc.resourceName, parsed.ResourceName)
			s.Equal(tc.duration, parsed.DurationMinutes)
			s.Equal(tc.text, parsed.OriginalText)
		})
	}
}
