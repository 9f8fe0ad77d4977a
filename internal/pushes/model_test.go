package pushes

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

func TestPushJobSchemaParses(t *testing.T) {
	s, err := schema.Parse(&PushJob{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := s.LookUpField("target_user_ids")
	if f == nil || f.DataType != "int64array" {
		t.Fatalf("target_user_ids field = %+v", f)
	}
}

func TestTargetIDsRoundTripThroughRawScan(t *testing.T) {
	r := newRepo(t)
	j := seedJob(t, r, PushJob{TargetUserIDs: TargetIDs{7, 3, 9}})

	var got PushJob
	if err := r.DB.WithContext(context.Background()).Raw(`select * from push_jobs where id = ?`, j.ID).Scan(&got).Error; err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got.TargetUserIDs) != 3 || got.TargetUserIDs[0] != 7 || got.TargetUserIDs[2] != 9 {
		t.Fatalf("targets = %v", got.TargetUserIDs)
	}
}
