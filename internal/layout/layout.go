// Package layout управляет структурой каталогов копицентра и
// перемещением файлов. Раскладка совместима с исторической структурой:
//
//	01_Auftraege/                       вход
//	02_Druckfertig/sw|farbig[/gedruckt] готовые задания по режиму печати
//	03_Originale/<YYYY-MM-DD_HH-MM>/    бэкап оригиналов за прогон
//	04_Fehler/<причина>/                карантин по причинам отклонения
//	05_Manuell/                         ручные задания
package layout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

const (
	dirInput      = "01_Auftraege"
	dirPrint      = "02_Druckfertig"
	dirPrintMono  = "sw"
	dirPrintColor = "farbig"
	dirPrinted    = "gedruckt"
	dirOriginals  = "03_Originale"
	dirErrors     = "04_Fehler"
	dirManual     = "05_Manuell"

	quarantineOther = "sonstige"
)

// Причины без собственного каталога попадают в "sonstige".
var quarantineDirs = map[model.RejectReason]string{
	model.ReasonUserNotFound:      "benutzer_nicht_gefunden",
	model.ReasonUserBlocked:       "gesperrt",
	model.ReasonEmptyDocument:     "zu_wenig_seiten",
	model.ReasonTooManyPages:      "zu_viele_seiten",
	model.ReasonPasswordProtected: "passwortgeschuetzt",
}

// Layout отвечает за пути и перемещения внутри базового каталога.
// Все перемещения атомарны: файл пишется во временное имя в целевом
// каталоге и переименовывается, частично записанный файл никогда не
// виден под конечным путём.
type Layout struct {
	base       string
	batchStamp string
}

// New создаёт раскладку с меткой прогона для каталога бэкапов.
func New(base string, startedAt time.Time) *Layout {
	return &Layout{
		base:       base,
		batchStamp: startedAt.Format("2006-01-02_15-04"),
	}
}

// InputDir возвращает входной каталог заказов.
func (l *Layout) InputDir() string {
	return filepath.Join(l.base, dirInput)
}

// PrintDir возвращает каталог готовых заданий для режима печати.
func (l *Layout) PrintDir(color model.ColorMode) string {
	sub := dirPrintMono
	if color == model.ColorColor {
		sub = dirPrintColor
	}
	return filepath.Join(l.base, dirPrint, sub)
}

// BackupDir возвращает каталог бэкапа оригиналов текущего прогона.
func (l *Layout) BackupDir() string {
	return filepath.Join(l.base, dirOriginals, l.batchStamp)
}

// QuarantineDir возвращает карантинный каталог для причины отклонения.
func (l *Layout) QuarantineDir(reason model.RejectReason) string {
	sub, ok := quarantineDirs[reason]
	if !ok {
		sub = quarantineOther
	}
	return filepath.Join(l.base, dirErrors, sub)
}

// ManualDir возвращает каталог ручных заданий.
func (l *Layout) ManualDir() string {
	return filepath.Join(l.base, dirManual)
}

// EnsureStructure создаёт полную структуру каталогов.
func (l *Layout) EnsureStructure() error {
	dirs := []string{
		l.InputDir(),
		l.PrintDir(model.ColorMono),
		filepath.Join(l.PrintDir(model.ColorMono), dirPrinted),
		l.PrintDir(model.ColorColor),
		filepath.Join(l.PrintDir(model.ColorColor), dirPrinted),
		l.BackupDir(),
		filepath.Join(l.base, dirErrors, quarantineOther),
		l.ManualDir(),
	}
	for _, sub := range quarantineDirs {
		dirs = append(dirs, filepath.Join(l.base, dirErrors, sub))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// PlaceFinal перемещает собранный артефакт в каталог готовых заданий.
func (l *Layout) PlaceFinal(src string, color model.ColorMode, name string) (string, error) {
	return moveInto(src, l.PrintDir(color), name)
}

// BackupOriginal перемещает оригинал заказа в бэкап текущего прогона.
func (l *Layout) BackupOriginal(src string) (string, error) {
	return moveInto(src, l.BackupDir(), filepath.Base(src))
}

// Quarantine перемещает оригинал отклонённого заказа в карантин причины.
func (l *Layout) Quarantine(src string, reason model.RejectReason) (string, error) {
	return moveInto(src, l.QuarantineDir(reason), filepath.Base(src))
}

// moveInto перемещает src в dir/name через временное имя и rename.
// Копирование вместо rename исходника переживает границы файловых
// систем (вход и выход могут лежать на разных томах).
func moveInto(src, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	final := filepath.Join(dir, name)
	tmp := filepath.Join(dir, "."+name+".part")

	if err := copyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return "", err
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename into place: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("remove source after move: %w", err)
	}

	return final, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	return out.Close()
}
