package kbucket

import (
	"math/bits"

	"github.com/dep2p/go-kbucket/pkg/types"
)

// Distance 计算两个标识符之间的距离等级
//
// 两个标识符按大端无符号整数解释，较短的一方在高位补零到相同长度后
// 逐字节异或。结果为 1 + 最高置位比特的位置（位置 0 是合并值的最低位）；
// 异或结果全零时返回 0。
//
// 满足 Distance(a, b) == Distance(b, a) 且 Distance(a, a) == 0。
// 不分配内存。
func Distance(a, b types.Identifier) types.DistanceClass {
	la, lb := len(a), len(b)
	n := la
	if lb > n {
		n = lb
	}
	offA, offB := n-la, n-lb

	for i := 0; i < n; i++ {
		var x, y byte
		if i >= offA {
			x = a[i-offA]
		}
		if i >= offB {
			y = b[i-offB]
		}
		if d := x ^ y; d != 0 {
			return types.DistanceClass((n-1-i)*8 + bits.Len8(d))
		}
	}
	return 0
}

// MaxDistanceClass 返回给定字节长度的标识符能产生的最大距离等级
func MaxDistanceClass(byteLen int) types.DistanceClass {
	if byteLen <= 0 {
		return 0
	}
	return types.DistanceClass(byteLen * 8)
}

// CompareDistance 比较 a 和 b 到 target 的完整 XOR 距离
//
// 比距离等级更细：同一等级内仍能区分远近。
// 返回：
//
//	-1 如果 dist(a, target) < dist(b, target)
//	 0 如果 dist(a, target) == dist(b, target)
//	 1 如果 dist(a, target) > dist(b, target)
func CompareDistance(a, b, target types.Identifier) int {
	n := len(target)
	if len(a) > n {
		n = len(a)
	}
	if len(b) > n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		t := byteAt(target, n, i)
		da := byteAt(a, n, i) ^ t
		db := byteAt(b, n, i) ^ t
		if da < db {
			return -1
		}
		if da > db {
			return 1
		}
	}
	return 0
}

// byteAt 返回 id 补零到 n 字节后第 i 个字节
func byteAt(id types.Identifier, n, i int) byte {
	off := n - len(id)
	if i < off {
		return 0
	}
	return id[i-off]
}
