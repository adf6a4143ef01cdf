package server

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>tunefinder</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@picocss/pico@2/css/pico.min.css">
</head>
<body>
    <main class="container">
        <h1>tunefinder</h1>
        <p id="status">Ready</p>
        <button id="listen">Listen</button>
        <article id="result" hidden></article>
        <h2>History</h2>
        <ul id="history"></ul>
    </main>
    <script>
    const status = document.getElementById('status');
    const button = document.getElementById('listen');
    const result = document.getElementById('result');
    const list = document.getElementById('history');
    let phase = 'idle';
    let capturing = false;

    button.onclick = () => fetch(capturing ? '/api/session/stop' : '/api/session/start', {method: 'POST'});

    function render(st) {
        phase = st.phase;
        capturing = st.capturing;
        button.textContent = capturing ? 'Stop' : 'Listen';
        button.disabled = phase === 'processing';
        if (phase === 'recording') status.textContent = 'Listening... ' + st.elapsedSeconds + 's';
        else if (phase === 'processing') status.textContent = 'Searching...';
        else if (phase === 'showing_error') status.textContent = st.failure ? st.failure.message : 'Error';
        else status.textContent = 'Ready';
        result.hidden = !st.currentTrack;
        if (st.currentTrack) {
            const t = st.currentTrack;
            result.innerHTML = '';
            const img = document.createElement('img');
            img.src = t.artworkUrl;
            img.width = 150;
            const h = document.createElement('h3');
            h.textContent = t.title + ' by ' + t.artist;
            result.append(img, h);
        }
    }

    function renderHistory(entries) {
        list.innerHTML = '';
        (entries || []).forEach((t, i) => {
            const li = document.createElement('li');
            const a = document.createElement('a');
            a.href = '#';
            a.textContent = t.title + ' - ' + t.artist;
            a.onclick = (e) => { e.preventDefault(); fetch('/api/history/select?index=' + i, {method: 'POST'}); };
            li.append(a);
            list.append(li);
        });
    }

    fetch('/api/history').then(r => r.json()).then(r => renderHistory(r.entries));
    const events = new EventSource('/api/events');
    events.addEventListener('state', e => render(JSON.parse(e.data)));
    events.addEventListener('history', e => renderHistory(JSON.parse(e.data)));
    </script>
</body>
</html>`
