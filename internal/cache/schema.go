package cache

// Schema contains SQL schema definitions for the cache. The primary key
// includes the transport so IMAP uids and REST message ids never collide.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
    transport TEXT NOT NULL,
    folder TEXT NOT NULL,
    message_id TEXT NOT NULL,
    subject TEXT,
    sender TEXT,
    recipient TEXT,
    date TEXT,
    snippet TEXT,
    cached_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (transport, folder, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_cached_at ON messages(cached_at);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
`
