package types

// Peer 路由表中的节点
//
// 任何能给出 Identifier 的类型都可以作为 Peer。调用方可以在实现类型上
// 附带任意元数据（地址、证书、统计），路由表只读取 Identifier()。
type Peer interface {
	Identifier() Identifier
}

// IDPeer 只携带标识符的最小 Peer 实现
//
// 常用于测试、搜索时的目标占位，以及只需要按标识符排序的场景。
type IDPeer Identifier

// Identifier 实现 Peer 接口
func (p IDPeer) Identifier() Identifier {
	return Identifier(p)
}

// String 返回 Base58 表示
func (p IDPeer) String() string {
	return Identifier(p).String()
}

// PeerIdentifier 返回 Peer 的标识符，nil Peer 返回 nil
//
// 带类型的 nil 指针（如 (*MyPeer)(nil)）同样按 nil 处理，
// 前提是实现类型的 Identifier 方法不解引用接收者。
func PeerIdentifier(p Peer) Identifier {
	if p == nil {
		return nil
	}
	return p.Identifier()
}
