// Package validate registers the Intake API's request-body validators.
package validate

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// urlStringPattern is the URL shape the intake API accepts: http(s)/ftp(s)
// scheme, a domain, localhost, or an IPv4 literal, optional port and path.
const urlStringPattern = `^(?i)(?:http|ftp)s?://` +
	`(?:(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+(?:[a-z]{2,6}\.?|[a-z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`

var urlStringRegexp = regexp.MustCompile(urlStringPattern)

// Tag is the validator tag name registered for URL-shaped string fields.
const Tag = "urlstring"

// RegisterURLString registers the "urlstring" validation tag on v.
func RegisterURLString(v *validator.Validate) error {
	return v.RegisterValidation(Tag, func(fl validator.FieldLevel) bool {
		return urlStringRegexp.MatchString(fl.Field().String())
	})
}
