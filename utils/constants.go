// File: utils/constants.go
package utils

import "time"

// DeviceAuthCachePrefix is the prefix used for Redis device-auth cache
// keys, which are shaped deviceauth:<deviceId>:<tokenDigest>.
const DeviceAuthCachePrefix = "deviceauth:"

// DeviceAuthCacheTTL is the time-to-live for device-auth cache entries.
const DeviceAuthCacheTTL = 10 * time.Minute
