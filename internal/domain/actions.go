package domain

import (
	"fmt"
	"strings"
)

type ActionKind string

const (
	ActionStart    ActionKind = "start"
	ActionHelp     ActionKind = "help"
	ActionIdentify ActionKind = "identify"
	ActionSearch   ActionKind = "search"
	ActionSelect   ActionKind = "select"
	ActionBack     ActionKind = "back"
	ActionText     ActionKind = "text"
	ActionPhoto    ActionKind = "photo"
)

// Action — типизированное действие, в которое нормализуются все входящие
// события и внутренние переходы до диспетчеризации.
type Action struct {
	Kind      ActionKind
	Query     string
	CatalogID string
	Photo     []byte
}

const selectPrefix = "select:"

// EncodeSelectToken кодирует выбор вида каталога в callback-токен.
func EncodeSelectToken(catalogID string) string {
	return selectPrefix + catalogID
}

// DecodeToken разбирает callback-токен в Action. Неизвестные токены
// отклоняются ошибкой ErrUnknownAction, а не падением.
func DecodeToken(token string) (Action, error) {
	switch token {
	case string(ActionIdentify):
		return Action{Kind: ActionIdentify}, nil
	case string(ActionSearch):
		return Action{Kind: ActionSearch}, nil
	case string(ActionBack):
		return Action{Kind: ActionBack}, nil
	}
	if id, ok := strings.CutPrefix(token, selectPrefix); ok {
		if id == "" {
			return Action{}, fmt.Errorf("decode token %q: %w", token, ErrUnknownAction)
		}
		return Action{Kind: ActionSelect, CatalogID: id}, nil
	}
	return Action{}, fmt.Errorf("decode token %q: %w", token, ErrUnknownAction)
}
