package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanExport stores metadata about a plan snapshot written to object storage.
// The JSON document itself resides in S3.
type PlanExport struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID      primitive.ObjectID `bson:"planId" json:"planId"`
	OwnerID     string             `bson:"ownerId" json:"ownerId"`
	S3ObjectKey string             `bson:"s3ObjectKey" json:"-"` // internal use
	ContentType string             `bson:"contentType" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	DayCount    int                `bson:"dayCount" json:"dayCount"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	DownloadURL string             `bson:"-" json:"downloadUrl,omitempty"` // presigned, never stored
}
