package message

import (
	"errors"
	"fmt"
	"strings"
)

var ErrValidation = errors.New("message validation failed")

var knownTypes = map[Type]struct{}{
	TypeTerminalStatusChange: {},
	TypeTaskProgress:         {},
	TypeCommandFeedback:      {},
	TypeNotification:         {},
	TypeAlert:                {},
	TypeSystem:               {},
}

// Validate 发布边界的同步校验，唯一会直接返回给调用方的失败
func Validate(m *Message) error {
	if m == nil {
		return fmt.Errorf("%w: message is nil", ErrValidation)
	}
	if m.Id == "" {
		return fmt.Errorf("%w: message id is empty", ErrValidation)
	}
	if _, ok := knownTypes[m.Type]; !ok {
		return fmt.Errorf("%w: unknown message type %q", ErrValidation, m.Type)
	}
	switch m.Target.Type {
	case TargetUser:
		if len(m.Target.UserIds) == 0 {
			return fmt.Errorf("%w: USER target requires at least one user id", ErrValidation)
		}
	case TargetOrg:
		if m.Target.OrgId == "" {
			return fmt.Errorf("%w: ORG target requires an org id", ErrValidation)
		}
	case TargetTopic:
		if m.Target.ExplicitTopic == "" {
			return fmt.Errorf("%w: TOPIC target requires an explicit topic", ErrValidation)
		}
		// 通配符仅允许出现在订阅匹配中，发布目标必须是具体主题
		if strings.Contains(m.Target.ExplicitTopic, "*") {
			return fmt.Errorf("%w: publish target must not contain wildcards", ErrValidation)
		}
	case TargetBroadcast:
	default:
		return fmt.Errorf("%w: unknown target type %q", ErrValidation, m.Target.Type)
	}
	return nil
}
