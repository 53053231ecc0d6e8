package atcomponents

// Keys of the tracker's key/value configuration read by the builders in this package.
const (
	ConfigUserAgent       = "userAgent"
	ConfigStorage         = "storage"
	ConfigStorageDuration = "storageDuration"
	ConfigMaxRetryCount   = "maxRetryCount"
)
