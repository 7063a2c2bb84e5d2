package checkpoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, seconds float64) *Registry {
	r, err := Open(filepath.Join(t.TempDir(), "runs.db"), seconds, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSaveLoad(t *testing.T) {
	r := openTest(t, 60)
	missing, err := r.Load("nothing")
	require.NoError(t, err)
	require.Nil(t, missing)

	run := &Run{
		Name:       "cichlids",
		Seed:       42,
		Replicates: 100,
		Workers:    4,
		Status:     Running,
		Output:     "out/cichlids.sims.tsv",
		Started:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, r.Save(run))
	require.Greater(t, run.Elapsed, 59.0)

	got, err := r.Load("cichlids")
	require.NoError(t, err)
	require.Equal(t, run.Name, got.Name)
	require.Equal(t, run.Seed, got.Seed)
	require.Equal(t, Running, got.Status)
	require.True(t, run.Started.Equal(got.Started))

	run.Status = Failed
	run.Error = "worker cichlids-2 failed"
	require.NoError(t, r.Save(run))
	got, err = r.Load("cichlids")
	require.NoError(t, err)
	require.Equal(t, Failed, got.Status)
	require.Equal(t, run.Error, got.Error)
}

func TestProgressThrottled(t *testing.T) {
	r := openTest(t, 3600)
	run := &Run{Name: "a", Status: Running, Started: time.Now()}
	require.NoError(t, r.Save(run))
	run.Collected = 10
	require.NoError(t, r.Progress(run))
	got, err := r.Load("a")
	require.NoError(t, err)
	require.Equal(t, 0, got.Collected)

	r.seconds = 0
	r.last = time.Now().Add(-time.Second)
	require.NoError(t, r.Progress(run))
	got, err = r.Load("a")
	require.NoError(t, err)
	require.Equal(t, 10, got.Collected)
}

func TestList(t *testing.T) {
	r := openTest(t, 0)
	runs, err := r.List()
	require.NoError(t, err)
	require.Empty(t, runs)

	now := time.Now()
	require.NoError(t, r.Save(&Run{Name: "b", Status: Complete, Started: now}))
	require.NoError(t, r.Save(&Run{Name: "a", Status: Complete, Started: now.Add(time.Minute)}))
	require.NoError(t, r.Save(&Run{Name: "c", Status: Failed, Started: now.Add(-time.Minute)}))
	runs, err = r.List()
	require.NoError(t, err)
	var names []string
	for _, run := range runs {
		names = append(names, run.Name)
	}
	require.Equal(t, []string{"c", "b", "a"}, names)
}

func TestNilDB(t *testing.T) {
	require.NoError(t, SaveData(nil, []byte("k"), []byte("v")))
	data, err := LoadData(nil, []byte("k"))
	require.NoError(t, err)
	require.Nil(t, data)
}
