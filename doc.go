// Package kbucket 提供 Kademlia 风格的路由表与有界最近邻搜索
//
// 路由表按与本地标识符（基准节点）的 XOR 距离等级把节点分桶，
// 每个桶容量固定、按最近确认时间排序。调用方用两种策略喂入节点：
//
//   - Live: 确认联系成功，桶满时驱逐最久未确认的节点
//   - Add:  被动得知，桶满时丢弃新节点，从不驱逐
//
// 搜索使用有界插入代替全量排序，热路径上不产生额外分配。
//
// # 快速开始
//
//	t, err := kbucket.New(
//	    kbucket.WithDimensions(160, 20),
//	    kbucket.WithBaseNode(localID),
//	)
//	if err != nil {
//	    return err
//	}
//	_ = t.Live(peer)
//	closest, err := t.Search(target, 20)
//
// # 对任意候选排序
//
//	var s kbucket.Scratch // 每个 goroutine 一个
//	ranked, err := kbucket.Search(received, target, 20, &s)
//
// # Fx 集成
//
// Module 从 *config.Config 构建 *Table，并在生命周期内启停健康探测。
package kbucket
