package domain

// Upload buckets.
const (
	BucketLogos     = "logos"
	BucketDownloads = "downloads"
	BucketProducts  = "products"
)

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var downloadContentTypes = map[string]bool{
	"application/pdf": true,
	"application/zip": true,
}

// IsValidBucket checks whether bucket accepts uploads.
func IsValidBucket(bucket string) bool {
	switch bucket {
	case BucketLogos, BucketDownloads, BucketProducts:
		return true
	}
	return false
}

// IsAllowedContentType checks whether contentType may be stored in bucket.
// Every bucket takes images; downloads also take documents and archives.
func IsAllowedContentType(bucket, contentType string) bool {
	if imageContentTypes[contentType] {
		return true
	}
	return bucket == BucketDownloads && downloadContentTypes[contentType]
}
