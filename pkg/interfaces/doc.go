// Package interfaces 定义路由表的公共接口
//
// 覆盖网络的查找与维护逻辑只依赖这里的接口，不直接依赖实现：
//   - routing.go        - 路由表（成员维护、健康探测、最近邻搜索）
//
// 实现位于 internal/routing/kbucket，由根包 kbucket 组装并对外提供。
package interfaces
