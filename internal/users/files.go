package users

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// LoadFallback читает резервную таблицу пользователей: по строке на
// пользователя, поля через пробел — кеннунг, имя, фамилия, подразделение.
// Отсутствующий файл не ошибка: резервный источник просто пуст.
func LoadFallback(path string) (map[string]*model.UserRecord, error) {
	records := map[string]*model.UserRecord{}
	if path == "" {
		return records, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("open fallback table: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		ownerID := strings.ToLower(fields[0])
		records[ownerID] = &model.UserRecord{
			OwnerID:    ownerID,
			GivenName:  fields[1],
			FamilyName: fields[2],
			OrgUnit:    fields[3],
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fallback table: %w", err)
	}

	return records, nil
}

// LoadBlocklist читает чёрный список: по одному кеннунгу на строку.
func LoadBlocklist(path string) (map[string]struct{}, error) {
	blocked := map[string]struct{}{}
	if path == "" {
		return blocked, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return blocked, nil
		}
		return nil, fmt.Errorf("open blocklist: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		blocked[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blocklist: %w", err)
	}

	return blocked, nil
}
