package strata

// Tables come into existence on first access from either side. The read path
// cannot create anything inside its snapshot, so on a miss it commits an
// empty table in a short write transaction and takes a fresh snapshot. Two
// goroutines racing to create the same table is fine: creation is
// first-one-wins and the loser just revalidates the types.

func (db *DB) readTable(ti tableInfo) (*etx, *engineTable, error) {
	for {
		tx, err := db.eng.beginRead()
		if err != nil {
			return nil, nil, txErr("begin read", err)
		}
		td, err := tx.table(ti)
		if err == nil {
			db.ReadCount.Add(1)
			return tx, &engineTable{tx: tx, td: td}, nil
		}
		tx.abort()
		if err != errTableMissing {
			return nil, nil, err
		}
		if err := db.createTable(ti); err != nil {
			return nil, nil, err
		}
	}
}

func (db *DB) readMulti(ti tableInfo) (*etx, *engineMulti, error) {
	for {
		tx, err := db.eng.beginRead()
		if err != nil {
			return nil, nil, txErr("begin read", err)
		}
		td, err := tx.table(ti)
		if err == nil {
			db.ReadCount.Add(1)
			return tx, &engineMulti{tx: tx, td: td}, nil
		}
		tx.abort()
		if err != errTableMissing {
			return nil, nil, err
		}
		if err := db.createTable(ti); err != nil {
			return nil, nil, err
		}
	}
}

func (db *DB) createTable(ti tableInfo) error {
	tx, err := db.eng.beginWrite()
	if err != nil {
		return txErr("begin write", err)
	}
	if _, err := tx.table(ti); err != nil {
		tx.abort()
		return err
	}
	if err := tx.commit(); err != nil {
		return txErr("commit", err)
	}
	db.WriteCount.Add(1)
	return nil
}

func (db *DB) writeTable(ti tableInfo) (*etx, *engineTable, error) {
	tx, err := db.eng.beginWrite()
	if err != nil {
		return nil, nil, txErr("begin write", err)
	}
	td, err := tx.table(ti)
	if err != nil {
		tx.abort()
		return nil, nil, err
	}
	return tx, &engineTable{tx: tx, td: td}, nil
}

func (db *DB) writeMulti(ti tableInfo) (*etx, *engineMulti, error) {
	tx, err := db.eng.beginWrite()
	if err != nil {
		return nil, nil, txErr("begin write", err)
	}
	td, err := tx.table(ti)
	if err != nil {
		tx.abort()
		return nil, nil, err
	}
	return tx, &engineMulti{tx: tx, td: td}, nil
}

func (db *DB) commitWrite(tx *etx) error {
	if err := tx.commit(); err != nil {
		return txErr("commit", err)
	}
	db.WriteCount.Add(1)
	return nil
}
