package entity

// 账本策略常量
const (
	// LightCost 每个流水线步骤的法力消耗
	LightCost = 20
	// HeavyCost 完整文档生成的法力消耗
	HeavyCost = 50
	// StepExperience 每个成功步骤获得的经验
	StepExperience = 10
	// SummaryExperience 设备摘要成功生成获得的经验
	SummaryExperience = 50

	resourceMin = 0
	resourceMax = 100
	levelSpan   = 100
)

// ResourceState 会话资源账本
// Mana 始终位于 [0,100]；Stress 目前没有任何操作修改，恒为 0；等级由经验推导
type ResourceState struct {
	Stress     int `json:"stress"`
	Mana       int `json:"mana"`
	Experience int `json:"experience"`
}

// NewResourceState 返回初始账本：满法力、零压力、零经验
func NewResourceState() ResourceState {
	return ResourceState{Stress: 0, Mana: resourceMax, Experience: 0}
}

// Level 等级 = 1 + floor(经验/100)
func (r ResourceState) Level() int {
	return 1 + r.Experience/levelSpan
}

// Health 原有界面中的生命值，等于 100 - Stress
func (r ResourceState) Health() int {
	return resourceMax - r.Stress
}

// CanAfford 法力是否足以支付 cost
func (r ResourceState) CanAfford(cost int) bool {
	return r.Mana >= cost
}

// Debit 扣减法力，结果不低于 0
func (r *ResourceState) Debit(cost int) {
	if cost < 0 {
		return
	}
	r.Mana = clamp(r.Mana - cost)
}

// CreditExperience 增加经验
func (r *ResourceState) CreditExperience(amount int) {
	if amount <= 0 {
		return
	}
	r.Experience += amount
}

func clamp(v int) int {
	return max(resourceMin, min(resourceMax, v))
}

// ResourceView 对外展示的账本快照
type ResourceView struct {
	Stress     int `json:"stress"`
	Health     int `json:"health"`
	Mana       int `json:"mana"`
	Experience int `json:"experience"`
	Level      int `json:"level"`
}

// View 生成带推导字段的快照
func (r ResourceState) View() ResourceView {
	return ResourceView{
		Stress:     r.Stress,
		Health:     r.Health(),
		Mana:       r.Mana,
		Experience: r.Experience,
		Level:      r.Level(),
	}
}
