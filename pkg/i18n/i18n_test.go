package i18n

import (
	"reflect"
	"testing"
)

func TestCatalogsComplete(t *testing.T) {
	for name, m := range map[string]Messages{"en": messagesEN, "zh": messagesZH} {
		v := reflect.ValueOf(m)
		for i := 0; i < v.NumField(); i++ {
			if v.Field(i).String() == "" {
				t.Fatalf("%s catalog missing %s", name, v.Type().Field(i).Name)
			}
		}
	}
}

func TestGetFollowsLanguage(t *testing.T) {
	defer SetLanguage(LangEN)

	if got := Get("RunNotFound"); got != "run not found" {
		t.Fatalf("Get=%q", got)
	}
	SetLanguage(LangZH)
	if GetLanguage() != LangZH {
		t.Fatalf("language not switched")
	}
	if got := Get("RunNotFound"); got != "找不到執行紀錄" {
		t.Fatalf("Get=%q", got)
	}
	if got := Get("NoSuchKey"); got != "NoSuchKey" {
		t.Fatalf("unknown key should echo, got %q", got)
	}
}
