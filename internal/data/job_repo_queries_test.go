package data

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftcv/craftcv-api/internal/domain/model"
)

func TestBuildJobListQueryNoFilters(t *testing.T) {
	query, args := buildJobListQuery(nil)
	assert.Contains(t, query, "FROM jobs WHERE 1=1")
	assert.Contains(t, query, "ORDER BY enqueued_at DESC, id DESC")
	assert.Empty(t, args)
}

func TestBuildJobListQueryWithFilters(t *testing.T) {
	status := model.JobStatusFailed
	jobType := model.JobTypeImprove
	query, args := buildJobListQuery(&model.JobListOptions{
		Status: &status,
		Type:   &jobType,
	})

	assert.Contains(t, query, "AND status = $1")
	assert.Contains(t, query, "AND job_type = $2")
	require.Len(t, args, 2)
	assert.Equal(t, "failed", args[0])
	assert.Equal(t, "improve", args[1])
}

func TestBuildJobListQuerySorting(t *testing.T) {
	query, _ := buildJobListQuery(&model.JobListOptions{SortBy: "status", SortOrder: "asc"})
	assert.Contains(t, query, "ORDER BY status ASC, id ASC")

	// Unknown sort fields fall back to the default ordering instead of
	// interpolating caller input into the query.
	query, _ = buildJobListQuery(&model.JobListOptions{SortBy: "id; DROP TABLE jobs"})
	assert.Contains(t, query, "ORDER BY enqueued_at DESC, id DESC")
	assert.NotContains(t, query, "DROP TABLE")
}

func TestCacheKeysCarryNamespace(t *testing.T) {
	assert.Equal(t, "craftcv:job:status:abc", JobStatusCacheKey("abc"))
	assert.Equal(t, "craftcv:job:result:abc", JobResultCacheKey("abc"))
}

func TestCloneJSONDefaultsEmptyObject(t *testing.T) {
	assert.JSONEq(t, `{}`, string(cloneJSON(nil)))
	assert.JSONEq(t, `{"a":1}`, string(cloneJSON([]byte(`{"a":1}`))))

	assert.Nil(t, cloneNullableJSON(nil))
	assert.JSONEq(t, `{"b":2}`, string(cloneNullableJSON([]byte(`{"b":2}`))))
}

func TestCloneJSONCopiesBacking(t *testing.T) {
	src := []byte(`{"a":1}`)
	out := cloneJSON(src)
	src[2] = 'z'
	assert.JSONEq(t, `{"a":1}`, string(out))
}

func TestCloneNullableScalars(t *testing.T) {
	assert.Nil(t, cloneNullableString(sql.NullString{}))
	s := cloneNullableString(sql.NullString{String: "timeout", Valid: true})
	require.NotNil(t, s)
	assert.Equal(t, "timeout", *s)

	assert.Nil(t, cloneNullableTime(sql.NullTime{}))
	now := time.Now()
	ts := cloneNullableTime(sql.NullTime{Time: now, Valid: true})
	require.NotNil(t, ts)
	assert.True(t, ts.Equal(now))
}

func TestAdvisoryLockKeysAreStablePerType(t *testing.T) {
	seen := map[int64]model.JobType{}
	for _, jt := range model.AllJobTypes() {
		key := advisoryLockRequeueMinor(jt)
		prev, dup := seen[key]
		assert.False(t, dup, "lock key for %s collides with %s", jt, prev)
		seen[key] = jt

		// Same type always maps to the same key.
		assert.Equal(t, key, advisoryLockRequeueMinor(jt))
	}
}
