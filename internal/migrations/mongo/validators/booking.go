package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"provider_id",
			"requester_id",
			"provider",
			"requester",
			"subject",
			"date",
			"start_time",
			"duration_hours",
			"status",
			"amount",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"provider_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"requester_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"provider": partySnapshotSchema,

			"requester": partySnapshotSchema,

			"subject": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"duration_hours": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  0.5,
				"maximum":  8,
			},

			"slot_labels": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"completed",
					"cancelled",
					"rescheduled",
				},
			},

			"amount": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  0,
			},

			"cancelled_by": bson.M{
				"bsonType": "string",
				"enum":     []string{"", "provider", "requester"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

// partySnapshotSchema enforces the never-null snapshot invariant: all three
// display fields must be present, an absent phone is the "unknown" sentinel.
var partySnapshotSchema = bson.M{
	"bsonType": "object",
	"required": []string{"name", "email", "phone"},
	"properties": bson.M{
		"name":  bson.M{"bsonType": "string"},
		"email": bson.M{"bsonType": "string"},
		"phone": bson.M{"bsonType": "string", "minLength": 1},
	},
}
