// fingerprint.go derives the cache identity. Two configurations with
// the same fingerprint share cached frames; configurations differing
// in name, timestamp or any render parameter never collide.

package rendercache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

func generateFingerprint(
	cacheName string,
	cacheTime int64,
	params Params,
) string {
	if cacheName == "" || params.EffectiveWidth() == 0 || params.EffectiveHeight() == 0 {
		return ""
	}

	hash := sha1.New()
	hash.Write([]byte(cacheName))
	hash.Write([]byte(fmt.Sprintf("%d", cacheTime)))
	hash.Write([]byte(fmt.Sprintf("%d", params.Width)))
	hash.Write([]byte(fmt.Sprintf("%d", params.Height)))
	hash.Write([]byte(fmt.Sprintf("%d", int(params.Format))))
	hash.Write([]byte(fmt.Sprintf("%d", params.Divider)))

	return hex.EncodeToString(hash.Sum(nil))
}
