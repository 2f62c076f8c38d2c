package kbucket

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-kbucket/pkg/types"
)

// TestMetrics_TableOperations 测试路由表操作更新指标
func TestMetrics_TableOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics("test", reg)
	require.NoError(t, err)

	rt := newTestTable(t, 8, 2, types.Identifier{0x00}, WithMetrics(m))

	require.NoError(t, rt.Live(pid(0x80)))
	require.NoError(t, rt.Add(pid(0x81)))
	require.NoError(t, rt.Add(pid(0x82)))  // 拒绝
	require.NoError(t, rt.Live(pid(0x83))) // 驱逐
	require.NoError(t, rt.Remove(pid(0x83)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.peers))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.saturated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.inserts.WithLabelValues(policyLive)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inserts.WithLabelValues(policyAdd)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.removals))

	_, err = rt.Search(types.Identifier{0x80}, 4)
	require.NoError(t, err)
	require.NoError(t, rt.SetBaseNode(types.Identifier{0x01}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds))

	n, err := testutil.GatherAndCount(reg, "test_routing_table_search_results")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	t.Log("✅ 指标随操作更新")
}

// TestMetrics_DuplicateRegistration 测试重复注册返回错误
func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics("dup", reg)
	require.NoError(t, err)

	_, err = NewMetrics("dup", reg)
	assert.Error(t, err)
}

// TestMetrics_NilSafe 测试 nil 指标不影响路由表
func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.setSize(1, 1)
	m.inserted(policyAdd)
	m.evicted()
	m.rejected()
	m.removed(2)
	m.rebuilt()
	m.searched(3)

	m, err := NewMetrics("", nil)
	require.NoError(t, err)
	m.inserted(policyLive)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inserts.WithLabelValues(policyLive)))
}
