package session

import (
	"context"
	"time"

	"gitlab.com/blackboxtests/bbt"
)

var (
	rowLocator  = bbt.ByTag("tr")
	cellLocator = bbt.ByTag("td")
)

// TableData returns the text of every td cell, row by row, after the table has
// been clickable and the configured settle delay has passed.
func (s *Session) TableData(ctx context.Context, by *bbt.Locator, need bbt.Need) ([][]string, error) {
	return s.TableDataSettle(ctx, by, s.cfg.TableSettle, need)
}

// TableDataSettle is TableData with an explicit settle delay
func (s *Session) TableDataSettle(ctx context.Context, by *bbt.Locator, settle time.Duration, need bbt.Need) ([][]string, error) {
	if err := s.waitClickable(ctx, by, s.cfg.TableWait); err != nil && !isStale(err) {
		return nil, s.classify(ctx, bbt.ActTable, by, need, err)
	}

	// TODO: replace the fixed settle with a wait on a row count or a page supplied
	// ready marker once the pages under test expose one.
	if err := sleep(ctx, settle); err != nil {
		return nil, err
	}

	var rows [][]string
	err := s.act(ctx, bbt.ActTable, by, need, func(table bbt.Element) error {
		out, err := readTable(ctx, table)
		if err != nil {
			return err
		}
		rows = out
		return nil
	})
	return rows, err
}

func readTable(ctx context.Context, table bbt.Element) ([][]string, error) {
	trs, err := table.Find(ctx, rowLocator)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(trs))
	for _, tr := range trs {
		tds, err := tr.Find(ctx, cellLocator)
		if err != nil {
			return nil, err
		}
		cells := make([]string, 0, len(tds))
		for _, td := range tds {
			text, err := td.Text(ctx)
			if err != nil {
				return nil, err
			}
			cells = append(cells, text)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
