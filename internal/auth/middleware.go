package auth

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Webex signs webhooks with HMAC-SHA1
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/webhook-relay/pkg/util/errorutil"
)

// SignatureHeader carries the webhook body signature set by Webex.
const SignatureHeader = "X-Spark-Signature"

// WebhookSignature rejects deliveries whose body signature does not match
// secret. An empty secret disables the check.
func WebhookSignature(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		if len(key) == 0 {
			return c.Next()
		}
		given := strings.TrimSpace(c.Get(SignatureHeader))
		if given == "" {
			return apperrors.NewUnauthorized("missing webhook signature")
		}
		if !ValidSignature(key, c.Body(), given) {
			return apperrors.NewUnauthorized("invalid webhook signature")
		}
		return c.Next()
	}
}

// ValidSignature reports whether signature is the hex HMAC-SHA1 of body.
func ValidSignature(key, body []byte, signature string) bool {
	expected, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, key)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign returns the hex HMAC-SHA1 of body, as Webex computes it.
func Sign(key, body []byte) string {
	mac := hmac.New(sha1.New, key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
